// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.



// Package download writes shell scripts which fetch Stripe 82 coadd frames.
// Nothing here touches the network, the script is run by the operator.
package download

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mlnoga/stampcut/internal/tile"
)

// Writes the fetch commands for every band of the given tiles. Codes are
// deduplicated and sorted, outside codes are skipped. Returns the number of tiles listed
func Write(w io.Writer, framesDir, url string, bands []string, codes []tile.Code) (int, error) {
	bw:=bufio.NewWriter(w)
	fmt.Fprintf(bw, "#!/bin/bash\n")
	fmt.Fprintf(bw, "cd %s\n", shellQuote(framesDir))
	n:=0
	for _, c:=range tile.Unique(codes) {
		if c.Outside { continue }
		n++
		for _, b:=range bands {
			name:=fmt.Sprintf("f%s_%s.rec.fits", c, b)
			fmt.Fprintf(bw, "curl -O %s/%s\n", strings.TrimSuffix(url, "/"), name)
			fmt.Fprintf(bw, "gzip %s\n", name)
		}
	}
	return n, bw.Flush()
}

// Writes the script to the named file and marks it executable
func WriteFile(fileName, framesDir, url string, bands []string, codes []tile.Code) (int, error) {
	f, err:=os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
	if err!=nil { return 0, err }
	n, err:=Write(f, framesDir, url, bands, codes)
	if err!=nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}

// Quotes a path for bash if it contains anything beyond plain path characters
func shellQuote(s string) string {
	plain:=s!=""
	for _, r:=range s {
		if !(r>='a' && r<='z' || r>='A' && r<='Z' || r>='0' && r<='9' || strings.ContainsRune("/._-+", r)) {
			plain=false
			break
		}
	}
	if plain { return s }
	return "'"+strings.ReplaceAll(s, "'", `'\''`)+"'"
}
