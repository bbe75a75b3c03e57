// Package integration_tests runs complete scans through the application,
// from configuration files to result records.
package integration_tests
