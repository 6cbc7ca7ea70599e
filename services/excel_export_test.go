package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func TestWriteExcel(t *testing.T) {
	table := &WideTable{
		Headers: []string{"Provincia", "Municipio", "ID"},
		Rows: [][]string{
			{"Sabana Centro", "Cajicá", "1"},
			{"", "Chía", "2"},
		},
	}

	buf, err := WriteExcel(table)
	assert.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"respuestas"}, f.GetSheetList())

	for i, want := range table.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		got, err := f.GetCellValue("respuestas", cell)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := f.GetCellValue("respuestas", "A2")
	assert.NoError(t, err)
	assert.Equal(t, "Sabana Centro", got)

	// Empty cells stay empty instead of being written
	got, err = f.GetCellValue("respuestas", "A3")
	assert.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = f.GetCellValue("respuestas", "B3")
	assert.NoError(t, err)
	assert.Equal(t, "Chía", got)
}

func TestWriteExcelEmptyTable(t *testing.T) {
	buf, err := WriteExcel(&WideTable{Headers: []string{"Provincia"}, Rows: nil})
	assert.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("respuestas")
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}
