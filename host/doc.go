// Package host provides the host loaders that import nativemod modules.
//
// Loader is the in-process Go host: it resolves a module's entry point, runs
// the registration step once and hands out the finalized record. Executor
// builds on a Loader to run WebAssembly guests on wazero, exporting every
// module a guest imports as a host module before the guest is instantiated.
package host
