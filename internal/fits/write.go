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


package fits

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Header keys generated by the writer itself. Values for these in Header maps are ignored
var reservedKeys=map[string]bool{
	"SIMPLE": true, "XTENSION": true, "BITPIX": true, "NAXIS": true, "EXTEND": true,
	"PCOUNT": true, "GCOUNT": true, "BZERO": true, "BSCALE": true, "END": true,
}

func isReserved(key string) bool {
	if reservedKeys[key] { return true }
	if strings.HasPrefix(key, "NAXIS") {
		_, err:=strconv.Atoi(key[5:])
		return err==nil
	}
	return false
}

// Writes in-memory FITS images to a file with given filename, the first
// as primary HDU and the others as IMAGE extensions. Compresses with gzip if
// the name ends in .gz. Writes to a temporary file first and renames it into
// place, so an existing output file is always complete.
func WriteFile(fileName string, hdus ...*Image) (err error) {
	tmp, err:=os.CreateTemp(filepath.Dir(fileName), "."+filepath.Base(fileName)+".*")
	if err!=nil { return err }
	defer func() {
		if err!=nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw:=bufio.NewWriterSize(tmp, bufLen)
	var w io.Writer=bw
	var zw *gzip.Writer
	if strings.HasSuffix(strings.ToLower(fileName), ".gz") {
		if zw, err=gzip.NewWriterLevel(bw, 6); err!=nil { return err }
		w=zw
	}

	if err=Write(w, hdus...); err!=nil { return err }
	if zw!=nil {
		if err=zw.Close(); err!=nil { return err }
	}
	if err=bw.Flush(); err!=nil { return err }
	if err=tmp.Close(); err!=nil { return err }
	return os.Rename(tmp.Name(), fileName)
}

// Writes in-memory FITS images to an io.Writer, the first as primary HDU and the others as extensions.
func Write(w io.Writer, hdus ...*Image) error {
	if len(hdus)==0 { return fmt.Errorf("no HDUs to write") }
	for i, hdu:=range hdus {
		if err:=hdu.writeHDU(w, i==0, len(hdus)>1); err!=nil { return err }
	}
	return nil
}

// Writes a single header and data unit
func (fits *Image) writeHDU(f io.Writer, primary, extend bool) error {
	// Build header in string buffer
	sb:=strings.Builder{}
	if primary {
		writeBool(&sb, "SIMPLE", true, "FITS standard 4.0")
	} else {
		writeString(&sb, "XTENSION", "IMAGE", "Image extension")
	}
	writeInt32(&sb, "BITPIX", -32, "32-bit floating point")
	writeInt32(&sb, "NAXIS",  int32(len(fits.Naxisn)), "[1] Number of axis")
	for i:=0; i<len(fits.Naxisn); i++ {
		writeInt32(&sb, fmt.Sprintf("NAXIS%d",i+1), fits.Naxisn[i], "[1] Axis size")
	}
	if primary && extend {
		writeBool(&sb, "EXTEND", true, "File may contain extensions")
	}
	if !primary {
		writeInt32(&sb, "PCOUNT", 0, "No parameters")
		writeInt32(&sb, "GCOUNT", 1, "One group")
	}
	fits.Header.write(&sb)
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	bytesInHeaderBlock:=(sb.Len() % fitsBlockSize)
	if bytesInHeaderBlock>0 {
		sb.WriteString(strings.Repeat(" ", fitsBlockSize-bytesInHeaderBlock))
	}

	// Write header block(s)
	_, err:=io.WriteString(f, sb.String())
	if err!=nil { return err }

	// Write payload data, replacing NaNs with zeros for compatibility
	if err=writeFloat32Array(f, fits.Data, true); err!=nil { return err }

	// Pad the data unit with zeros to a full block
	if bytesInDataBlock:=(len(fits.Data)*4) % fitsBlockSize; bytesInDataBlock>0 {
		_, err=f.Write(make([]byte, fitsBlockSize-bytesInDataBlock))
	}
	return err
}

// Writes all user cards of a header, EXTNAME first and then sorted by key for reproducible output
func (h *Header) write(w io.Writer) {
	if name, ok:=h.Strings["EXTNAME"]; ok {
		writeString(w, "EXTNAME", name, h.Notes["EXTNAME"])
	}
	for _, k:=range sortedKeys(h.Bools) {
		if !isReserved(k) { writeBool(w, k, h.Bools[k], h.Notes[k]) }
	}
	for _, k:=range sortedKeys(h.Ints) {
		if !isReserved(k) { writeInt32(w, k, h.Ints[k], h.Notes[k]) }
	}
	for _, k:=range sortedKeys(h.Floats) {
		if !isReserved(k) { writeFloat64(w, k, h.Floats[k], h.Notes[k]) }
	}
	for _, k:=range sortedKeys(h.Strings) {
		if !isReserved(k) && k!="EXTNAME" { writeString(w, k, h.Strings[k], h.Notes[k]) }
	}
	for _, k:=range sortedKeys(h.Dates) {
		if !isReserved(k) { writeString(w, k, h.Dates[k], h.Notes[k]) }
	}
	for _, c:=range h.Comments {
		writeText(w, "COMMENT", c)
	}
	for _, c:=range h.History {
		writeText(w, "HISTORY", c)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys:=make([]string, 0, len(m))
	for k:=range m {
		keys=append(keys, k)
	}
	sort.Strings(keys)
	return keys
}


// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	v:="F"
	if value { v="T" }
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}


// Writes a FITS header int32 value
func writeInt32(w io.Writer, key string, value int32, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}


// Writes a FITS header float64 value. Always emits a decimal point or exponent,
// so the value reads back as floating point
func writeFloat64(w io.Writer, key string, value float64, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	s:=strconv.FormatFloat(value, 'G', -1, 64)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		s="0.0"
	} else if !strings.ContainsAny(s, ".E") {
		s+=".0"
	}
	card:=fmt.Sprintf("%-8s= %20s / %s", key, s, comment)
	fmt.Fprintf(w, "%-80.80s", card)
}


// Writes a FITS header string value, with escaping and continuations if necessary.
func writeString(w io.Writer, key, value, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }

	// escape ' characters
	value=strings.ReplaceAll(value, "'", "''")

	if len(value)<=18 {
		fmt.Fprintf(w, "%-8s= '%s'%s / %-47s", key, value, strings.Repeat(" ", 18-len(value)), comment)
		return
	}
	fmt.Fprintf(w, "%-8s= '%s&' / %-47s", key, value[0:17], comment)
	value=value[17:]
	for ; len(value)>66 ; {
		fmt.Fprintf(w, "CONTINUE  '%s&' ", value[0:66])
		value=value[66:]
	}
	fmt.Fprintf(w, "%-80s", "CONTINUE  '"+value+"'")
}


// Writes a COMMENT or HISTORY line, truncated to the line length
func writeText(w io.Writer, key, text string) {
	if len(text)>70 { text=text[0:70] }
	fmt.Fprintf(w, "%-8s  %-70s", key, text)
}


// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", 80-3))
}

// Writes FITS binary body data in network byte order.
// Optionally replaces NaNs with zeros for compatibility with other software
func writeFloat32Array(w io.Writer, data []float32, replaceNaNs bool) error {
	buf:=make([]byte,bufLen)

	for block:=0; block<len(data); block+=(bufLen>>2) {
		size:=len(data)-block
		if size>(bufLen>>2) { size=(bufLen>>2) }

		for offset:=0; offset<size; offset++ {
			d:=data[block+offset]
			if replaceNaNs && math.IsNaN(float64(d)) { d=0 }
			val:=math.Float32bits(d)
			buf[(offset<<2)+0]=byte(val>>24)
			buf[(offset<<2)+1]=byte(val>>16)
			buf[(offset<<2)+2]=byte(val>> 8)
			buf[(offset<<2)+3]=byte(val    )
		}
		_, err:=w.Write(buf[:(size<<2)])
		if err!=nil { return err }
	}
	return nil
}
