package netcdf

import (
	"fmt"
	"os"
	"sort"

	"github.com/ctessum/cdf"
)

// Dimension is a named, fixed-length axis.
type Dimension struct {
	Name   string
	Length int
}

// Variable is a float32 array written in row-major order over Dims.
type Variable struct {
	Name       string
	Dims       []string
	Data       []float64
	Attributes map[string]any // values must be string, []float32, []float64 or []int32
}

// Dataset is the content of a NetCDF file written by Write.
type Dataset struct {
	Dimensions []Dimension
	Variables  []Variable
	Attributes map[string]any
}

// Write creates path and stores ds as a NetCDF classic file. Variables are
// written in the order given.
func Write(path string, ds Dataset) error {
	names := make([]string, len(ds.Dimensions))
	lengths := make([]int, len(ds.Dimensions))
	sizes := make(map[string]int, len(ds.Dimensions))
	for i, d := range ds.Dimensions {
		names[i] = d.Name
		lengths[i] = d.Length
		sizes[d.Name] = d.Length
	}

	h := cdf.NewHeader(names, lengths)
	for _, k := range sortedKeys(ds.Attributes) {
		h.AddAttribute("", k, ds.Attributes[k])
	}
	for _, v := range ds.Variables {
		n := 1
		for _, d := range v.Dims {
			l, ok := sizes[d]
			if !ok {
				return fmt.Errorf("variable %s: unknown dimension %q", v.Name, d)
			}
			n *= l
		}
		if len(v.Data) != n {
			return fmt.Errorf("variable %s: dims are %d but array length is %d", v.Name, n, len(v.Data))
		}
		h.AddVariable(v.Name, v.Dims, []float32{0})
		for _, k := range sortedKeys(v.Attributes) {
			h.AddAttribute(v.Name, k, v.Attributes[k])
		}
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	nc, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("write netcdf header: %w", err)
	}
	for _, v := range ds.Variables {
		if err := writeVariable(nc, v); err != nil {
			return fmt.Errorf("write variable %s: %w", v.Name, err)
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		return err
	}
	return f.Close()
}

func writeVariable(nc *cdf.File, v Variable) error {
	data32 := make([]float32, len(v.Data))
	for i, e := range v.Data {
		data32[i] = float32(e)
	}
	end := nc.Header.Lengths(v.Name)
	start := make([]int, len(end))
	_, err := nc.Writer(v.Name, start, end).Write(data32)
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
