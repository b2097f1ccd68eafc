// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package posix provides [POSIX]-flavoured process helpers shared by the
// components that drive external tools: the executable name used in CLI
// usage strings, lookup of configured tool binaries, and splitting of
// captured tool output into lines.
//
// Basic Usage:
//
//	bin, err := posix.LookupTool("eapol_test", cfg.Paths.EapolTest)
//	if err != nil {
//		return err
//	}
//	out, _ := exec.CommandContext(ctx, bin, args...).CombinedOutput()
//	for _, line := range posix.Lines(out) {
//		log.Println(line)
//	}
//
// [POSIX]: https://grokipedia.com/page/POSIX
package posix
