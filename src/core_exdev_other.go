//go:build !unix

package main

// Without EXDEV every rename failure is final.
func isEXDEV(error) bool { return false }
