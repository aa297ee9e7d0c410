// Package main provides the entry point for the phonehunt CLI.
//
// phonehunt resolves phone numbers for batches of person records by
// driving a public people-search site through proxied, fingerprinted
// browser sessions. Records whose result address matches the record's
// own address get their phone columns filled; everything else is left
// for a later run.
//
// Usage:
//
//	phonehunt run input.csv
//	phonehunt run input.csv --start 51 --end 100
//	phonehunt proxies fetch
//
// See --help for all available options.
package main

func main() {
	Execute()
}
