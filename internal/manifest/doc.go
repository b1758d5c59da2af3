// Package manifest loads package manifests.
//
// A manifest names the package, lists its requirements, declares which files
// are installed where and which environment variables point at them. Both YAML
// and HCL are accepted; the file extension selects the decoder. Omitted install
// and environment sections fall back to the layout of a Python pipeline
// package: lib/python/*.py plus everything under config, with PYTHONPATH
// prepended.
package manifest
