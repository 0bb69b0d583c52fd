// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Helpers cover file fixtures (MustWriteFile, MustReadFile), checks for
// leftover download artifacts (AssertNoTempArchives), in-memory tar.gz
// construction (TarGz, NpmPackage), an httptest server that serves archive
// bytes by path (ServeFiles), and a semaphore bounding concurrent test
// containers (ContainerSemaphore).
package testutil
