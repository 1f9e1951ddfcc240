// Package fs abstracts the file operations behind shared memory objects so
// failures can be injected in tests.
//
// # Implementations
//
//   - [LocalFS]: Production implementation using the os package
//   - [FaultyFS]: Test utility that fails selected operations
//
// Production code uses fs.Default (which is [LocalFS]). Mapped files must
// expose a real descriptor through File.Fd.
package fs
