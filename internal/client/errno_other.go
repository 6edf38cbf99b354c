//go:build !unix

package client

func errnoName(error) string { return "" }
