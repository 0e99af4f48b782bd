package auth

import "fishing-api/internal/observability"

func testLogger() *observability.Logger {
	return observability.NewLogger()
}
