// Package compat checks engine version compatibility ranges declared by
// plugin packages.
package compat
