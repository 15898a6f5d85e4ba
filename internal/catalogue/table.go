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



// Package catalogue reads and writes FITS binary table catalogues.
package catalogue

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/klauspost/compress/gzip"
)

// One table row, column name to native value
type Row map[string]interface{}

// Reads all rows of the first binary table extension in the named file, which may be gzip compressed
func ReadTable(fileName string) (rows []Row, cols []string, err error) {
	file, err:=os.Open(fileName)
	if err!=nil { return nil, nil, err }
	defer file.Close()

	var r io.Reader=bufio.NewReader(file)
	if strings.HasSuffix(strings.ToLower(fileName), ".gz") {
		zr, err:=gzip.NewReader(r)
		if err!=nil { return nil, nil, fmt.Errorf("%s: %w", fileName, err) }
		defer zr.Close()
		r=zr
	}

	f, err:=fitsio.Open(r)
	if err!=nil { return nil, nil, fmt.Errorf("%s: %w", fileName, err) }
	defer f.Close()

	var tbl *fitsio.Table
	for _, hdu:=range f.HDUs() {
		if t, ok:=hdu.(*fitsio.Table); ok {
			tbl=t
			break
		}
	}
	if tbl==nil { return nil, nil, fmt.Errorf("%s: no table extension", fileName) }

	for _, c:=range tbl.Cols() {
		cols=append(cols, c.Name)
	}

	rs, err:=tbl.Read(0, tbl.NumRows())
	if err!=nil { return nil, nil, fmt.Errorf("%s: %w", fileName, err) }
	defer rs.Close()
	for rs.Next() {
		row:=make(map[string]interface{})
		if err:=rs.Scan(&row); err!=nil { return nil, nil, fmt.Errorf("%s: row %d: %w", fileName, len(rows), err) }
		rows=append(rows, Row(row))
	}
	return rows, cols, rs.Err()
}

// Returns the named column as float64, converting from any numeric column type
func (r Row) Float(name string) (float64, error) {
	v, ok:=r[name]
	if !ok { return 0, fmt.Errorf("no column %s", name) }
	switch x:=v.(type) {
	case float64: return x, nil
	case float32: return float64(x), nil
	case int64:   return float64(x), nil
	case int32:   return float64(x), nil
	case int16:   return float64(x), nil
	case int8:    return float64(x), nil
	case uint8:   return float64(x), nil
	case int:     return float64(x), nil
	}
	return 0, fmt.Errorf("column %s has non-numeric type %T", name, v)
}

// Returns the named column as an int
func (r Row) Int(name string) (int, error) {
	f, err:=r.Float(name)
	return int(f), err
}

// Returns the named column as string, trimmed. Numeric columns are formatted
func (r Row) String(name string) (string, error) {
	v, ok:=r[name]
	if !ok { return "", fmt.Errorf("no column %s", name) }
	if s, ok:=v.(string); ok { return strings.TrimSpace(strings.TrimRight(s, "\x00")), nil }
	if _, err:=r.Float(name); err==nil { return fmt.Sprint(v), nil }
	return "", fmt.Errorf("column %s has type %T", name, v)
}

// Returns the named array column as float64 values
func (r Row) Floats(name string) ([]float64, error) {
	v, ok:=r[name]
	if !ok { return nil, fmt.Errorf("no column %s", name) }
	// fixed width columns scan into Go arrays, variable length ones into slices
	rv:=reflect.ValueOf(v)
	if rv.Kind()!=reflect.Array && rv.Kind()!=reflect.Slice {
		return nil, fmt.Errorf("column %s has type %T, want array", name, v)
	}
	res:=make([]float64, rv.Len())
	for i:=range res {
		e:=rv.Index(i)
		switch {
		case e.CanFloat(): res[i]=e.Float()
		case e.CanInt():   res[i]=float64(e.Int())
		case e.CanUint():  res[i]=float64(e.Uint())
		default: return nil, fmt.Errorf("column %s has type %T, want numeric array", name, v)
		}
	}
	return res, nil
}

// Writes rows of a struct type with `fits` field tags as binary table
// extension extName after an empty primary HDU. Gzip compressed if the name ends in .gz
func WriteTable[T any](fileName, extName string, rows []T) (err error) {
	file, err:=os.Create(fileName)
	if err!=nil { return err }
	defer func() {
		if cerr:=file.Close(); err==nil { err=cerr }
	}()

	bw:=bufio.NewWriter(file)
	var w io.Writer=bw
	var zw *gzip.Writer
	if strings.HasSuffix(strings.ToLower(fileName), ".gz") {
		zw=gzip.NewWriter(bw)
		w=zw
	}

	f, err:=fitsio.Create(w)
	if err!=nil { return err }
	phdu, err:=fitsio.NewPrimaryHDU(nil)
	if err!=nil { return err }
	if err=f.Write(phdu); err!=nil { return err }

	var zero T
	tbl, err:=fitsio.NewTableFrom(extName, zero, fitsio.BINARY_TBL)
	if err!=nil { return err }
	defer tbl.Close()
	for i:=range rows {
		if err=tbl.Write(&rows[i]); err!=nil { return fmt.Errorf("%s: row %d: %w", fileName, i, err) }
	}
	if err=f.Write(tbl); err!=nil { return err }
	if err=f.Close(); err!=nil { return err }

	if zw!=nil {
		if err=zw.Close(); err!=nil { return err }
	}
	return bw.Flush()
}
