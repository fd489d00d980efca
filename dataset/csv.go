// SPDX-License-Identifier: MIT

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SubjectColumn is the optional header of the subject id column.
const SubjectColumn = "subject"

// ReadCSV reads one group from r. The header names the item columns;
// columns are matched to q by item name and extra columns are ignored.
// Cells hold 1-based levels, with 0 or an empty cell for missing.
func ReadCSV(r io.Reader, q Questionnaire, name string) (Group, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return Group{}, fmt.Errorf("group %q: header: %w", name, err)
	}
	col := make(map[string]int, len(header))
	for j, h := range header {
		col[strings.TrimSpace(h)] = j
	}
	idx := make([]int, q.NItems())
	for i, it := range q.Items {
		j, ok := col[it.Name]
		if !ok {
			return Group{}, fmt.Errorf("group %q: %q: %w", name, it.Name, ErrMissingColumn)
		}
		idx[i] = j
	}
	subj, hasSubj := col[SubjectColumn]

	g := Group{Name: name}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Group{}, fmt.Errorf("group %q: %w", name, err)
		}
		resp := make([]int, len(idx))
		for i, j := range idx {
			v, err := parseLevel(rec[j], q.Items[i].NLevels())
			if err != nil {
				return Group{}, fmt.Errorf("group %q line %d item %q: %w", name, line, q.Items[i].Name, err)
			}
			resp[i] = v
		}
		g.Responses = append(g.Responses, resp)
		if hasSubj {
			g.Subjects = append(g.Subjects, rec[subj])
		} else {
			g.Subjects = append(g.Subjects, strconv.Itoa(line-1))
		}
	}
	return g, nil
}

// parseLevel maps a 1-based cell to a zero-based level, -1 for missing.
func parseLevel(cell string, levels int) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return -1, nil
	}
	v, err := strconv.Atoi(cell)
	if err != nil || v < 0 || v > levels {
		return 0, fmt.Errorf("%q not in [0, %d]: %w", cell, levels, ErrBadResponse)
	}
	return v - 1, nil
}

// WriteCSV writes g with a subject column and one column per item, using
// the 1-based coding read by ReadCSV.
func WriteCSV(w io.Writer, q Questionnaire, g Group) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, q.NItems()+1)
	header = append(header, SubjectColumn)
	for _, it := range q.Items {
		header = append(header, it.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for s, r := range g.Responses {
		rec[0] = strconv.Itoa(s + 1)
		if s < len(g.Subjects) && g.Subjects[s] != "" {
			rec[0] = g.Subjects[s]
		}
		for i, ri := range r {
			rec[i+1] = strconv.Itoa(ri + 1)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
