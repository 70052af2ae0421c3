// Package testsupport builds temp-dir configurations and dataset fixtures
// for package tests.
package testsupport
