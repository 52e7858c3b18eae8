// Package config loads loader configuration from a YAML file.
//
// The file is read once, environment variables in it are expanded
// (${VAR} syntax) and unknown keys are rejected. Example:
//
//	default_location: streaming
//	tick_interval: 16ms
//	workers: 8
//	log_level: info
//
//	resources:
//	  memory_limit_bytes: 268435456
//	  max_concurrent_fetches: 4
//
//	backends:
//	  streaming:
//	    type: s3
//	    bucket: game-assets
//	    prefix: bundles/
//	    region: eu-central-1
//	    cache_bytes: 67108864
//	  bundled:
//	    type: local
//	    dir: ./assets
//	  persistent:
//	    type: minio
//	    endpoint: localhost:9000
//	    bucket: saves
//	    access_key: ${MINIO_ACCESS_KEY}
//	    secret_key: ${MINIO_SECRET_KEY}
package config
