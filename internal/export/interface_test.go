package export

import "testing"

func TestNewExporter(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantType string
		wantExt  string
		wantErr  bool
	}{
		{"jsonl format", "jsonl", "JSONLExporter", "jsonl", false},
		{"table format", "table", "TableExporter", "txt", false},
		{"default format", "", "TableExporter", "txt", false},
		{"yaml format", "yaml", "YAMLExporter", "yaml", false},
		{"json format", "json", "JSONExporter", "json", false},
		{"unsupported format", "xml", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewExporter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				if exporter != nil {
					t.Errorf("NewExporter() returned exporter %T, want nil", exporter)
				}
				return
			}

			if exporter == nil {
				t.Fatal("NewExporter() returned nil exporter")
			}
			if got := exporter.Extension(); got != tt.wantExt {
				t.Errorf("Exporter.Extension() = %v, want %v", got, tt.wantExt)
			}

			switch tt.wantType {
			case "JSONLExporter":
				if _, ok := exporter.(*JSONLExporter); !ok {
					t.Errorf("Expected JSONLExporter, got %T", exporter)
				}
			case "TableExporter":
				if _, ok := exporter.(*TableExporter); !ok {
					t.Errorf("Expected TableExporter, got %T", exporter)
				}
			case "YAMLExporter":
				if _, ok := exporter.(*YAMLExporter); !ok {
					t.Errorf("Expected YAMLExporter, got %T", exporter)
				}
			case "JSONExporter":
				if _, ok := exporter.(*JSONExporter); !ok {
					t.Errorf("Expected JSONExporter, got %T", exporter)
				}
			}
		})
	}
}
