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


package internal

import (
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// Fraction of physical memory the workers may hold in megastamps, in percent
const memoryBudgetPercent = 70

// Picks the number of concurrent stamp workers. A positive request is honored
// as is. Zero selects one worker per physical core, capped so that all workers
// together hold at most 70% of physical memory, given the per job footprint in bytes.
func AutoWorkers(requested int, perJobBytes int64, logWriter io.Writer) int {
	if requested>0 { return requested }

	cores:=cpuid.CPU.PhysicalCores
	if cores<=0 { cores=runtime.NumCPU() }

	totalBytes:=int64(memory.TotalMemory())
	byMemory:=cores
	if totalBytes>0 && perJobBytes>0 {
		byMemory=int(totalBytes*memoryBudgetPercent/100/perJobBytes)
	}

	workers:=cores
	if byMemory<workers { workers=byMemory }
	if workers<1 { workers=1 }

	fmt.Fprintf(logWriter, "CPU %s with %d physical cores, %d MiB physical memory, %d MiB per job: using %d workers\n",
		cpuid.CPU.BrandName, cores, totalBytes/1024/1024, perJobBytes/1024/1024, workers)
	return workers
}
