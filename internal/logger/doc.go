// Package logger wraps zap with a global sugared logger that travels in a
// context.Context.
//
// Services never hold a logger field: they receive a context, optionally
// scope it with WithName or WithKV, and call the leveled helpers
// (Info, InfoKV, Warnf, ...) which extract the logger from that context.
package logger
