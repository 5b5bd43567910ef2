// Package adapter defines the contract between the runtime and a chat
// protocol implementation, plus a console adapter that reads messages from
// an io.Reader and prints replies to an io.Writer.
package adapter
