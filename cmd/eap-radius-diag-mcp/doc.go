// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// eap-radius-diag-mcp serves the EAP/RADIUS diagnostics as a Model Context
// Protocol server over stdio.
//
// # Environment
//
//	EAP_DIAG_CONFIG_FILE  Configuration file (JSON or YAML)
//	EAP_DIAG_PROFILE      Institution profile enabling trust and hostname checks
//	EAP_DIAG_LOG_FILE     File receiving JSON log lines (default: no logging)
//	EAP_DIAG_OPENSSL      Path of the openssl binary
//	EAP_DIAG_EAPOL_TEST   Path of the eapol_test binary
//
// # Client Configuration
//
//	{
//	  "mcpServers": {
//	    "eap-radius-diag": {
//	      "command": "eap-radius-diag-mcp",
//	      "env": {"EAP_DIAG_CONFIG_FILE": "/etc/eap-diag/diag.yaml"}
//	    }
//	  }
//	}
package main
