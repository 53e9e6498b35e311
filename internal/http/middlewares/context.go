package middlewares

import "context"

type ctxKey string

const (
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
	// ctxSessionIDKey guarda el ID de sesión del navegador
	ctxSessionIDKey ctxKey = "session_id"
)

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}

// setSessionID inyecta el ID de sesión en el contexto (interno)
func setSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxSessionIDKey, sessionID)
}

// GetSessionID obtiene el ID de sesión del contexto.
// Retorna cadena vacía si el middleware de sesión no se aplicó.
func GetSessionID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxSessionIDKey).(string); ok {
		return s
	}
	return ""
}
