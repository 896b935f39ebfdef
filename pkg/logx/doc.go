// Package logx configures kestrel's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - The kernel decoupled from sink configuration (the zero Logger is a
//     safe no-op, so scheduler code can log unconditionally)
package logx
