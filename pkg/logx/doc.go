// Package logx configures svcmon's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller), on stderr
//   - File output JSON-structured
//   - Optional journald sink when running as a systemd unit
package logx
