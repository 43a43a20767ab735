package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Attendance",
		Summary: []Field{{Label: "Class", Value: "Algorithms"}},
		Headers: []string{"student_id", "status"},
		Rows: []map[string]string{
			{"student_id": "s1", "status": "present"},
			{"student_id": "s2", "status": "absent", "ignored": "x"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "student_id,status\ns1,present\ns2,absent\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	ds := sampleDataset()
	for i := 0; i < 80; i++ {
		ds.Rows = append(ds.Rows, map[string]string{"student_id": "bulk", "status": "late"})
	}

	out, err := NewPDFExporter().Render(ds)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Dataset{Title: "empty"})
	assert.Error(t, err)
}

func TestRendererMetadata(t *testing.T) {
	var r Renderer = NewCSVExporter()
	assert.Equal(t, "csv", r.Extension())
	r = NewPDFExporter()
	assert.Equal(t, "application/pdf", r.ContentType())
}
