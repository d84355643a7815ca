// Package config loads the storyhook configuration.
//
// Configuration is a JSON file read with gjson. A missing file yields
// the defaults; a file that exists but does not parse is an error.
// Environment variables prefixed STORYHOOK_ override file values, so a
// deployment can flip the log level without editing the file.
//
//	cfg, err := config.Load("/etc/storyhook/config.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
