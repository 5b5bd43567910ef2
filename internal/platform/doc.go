// Package platform provides cross-platform filesystem operations: permission
// management and directory replacement. On Windows chmod is a no-op and a
// rename onto an existing directory goes through a backup copy.
package platform
