// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/siderolabs/gen/xslices"

	"github.com/siderolabs/go-blkprobe/probe"
)

// formatValue prints text values as is, and binary values (magic) as hex.
func formatValue(data []byte) string {
	if utf8.Valid(data) && strings.IndexFunc(string(data), func(r rune) bool { return !unicode.IsPrint(r) }) == -1 {
		return string(data)
	}

	return "0x" + hex.EncodeToString(data)
}

func printExport(w io.Writer, device string, values []probe.Value) {
	fmt.Fprintf(w, "DEVNAME=%s\n", device)

	for _, v := range values {
		fmt.Fprintf(w, "%s=%s\n", v.Name, formatValue(v.Data))
	}
}

func printValue(w io.Writer, device string, values []probe.Value) {
	pairs := xslices.Map(values, func(v probe.Value) string {
		return fmt.Sprintf("%s=%q", v.Name, formatValue(v.Data))
	})

	fmt.Fprintf(w, "%s: %s\n", device, strings.Join(pairs, " "))
}

func printPartitions(w io.Writer, parts []probe.Partition) {
	for _, part := range parts {
		typ := fmt.Sprintf("0x%02x", part.TypeCode)
		if part.TypeUUID != nil {
			typ = part.TypeUUID.String()
		}

		var id string
		if part.UUID != nil {
			id = part.UUID.String()
		}

		fmt.Fprintf(w, "  partition %d: offset=%d size=%d type=%s uuid=%s label=%q\n",
			part.Index, part.Offset, part.Size, typ, id, part.Label)
	}
}
