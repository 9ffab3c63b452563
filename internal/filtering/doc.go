// Package filtering selects which configured items a run processes.
//
// Items are matched on two attributes:
//
//   - Source: glob patterns (gobwas/glob, so '*' also matches across '/'
//     and ':'), e.g. "net.doridian.*" or "*/releases"
//   - Repository: exact repository keys
//
// Both follow the same precedence rules:
//
//  1. If exclude patterns are specified and match -> exclude (precedence)
//  2. If include patterns are specified and match -> include
//  3. If include patterns are specified but no match -> exclude
//  4. If only exclude patterns are specified and no match -> include
//  5. If nothing is specified -> include
//
// An item must pass both checks to be selected.
package filtering
