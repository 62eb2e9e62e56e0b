// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for geoalg.
//
// The configuration file is named by GEOALG_CONFIG, or found at
// ~/.config/geoalg/config.yaml. Without either, [Default] applies.
// ${VAR} and ${VAR:-default} patterns are expanded in the
// documentation URL and in option values. GEOALG_LOG_LEVEL,
// GEOALG_LOG_FORMAT and GEOALG_DOC_URL override the file.
//
//	log:
//	  level: info
//	  format: json
//	docs:
//	  base_url: ${GEOALG_DOCS:-https://geoalg.bureau.foundation}
//	options:
//	  GRC_DEFAULT_COMPRESS: ZSTD
//	  ALLOW_WRITES_IN_STREAM: NO
//
// Options are the configuration options drivers and algorithms
// consult. `--config KEY=VALUE` on the command line overrides them for
// a single invocation.
package config
