// Package testsupport provides shared fixtures for package tests: a fake
// process runner, a throwaway config, and podcast document builders.
package testsupport
