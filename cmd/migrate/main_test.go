package main

import "testing"

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_transactions.sql", true, "0001", "create_transactions"},
		{"0002_create_statement_exports.sql", true, "0002", "create_statement_exports"},
		{"001_too_short.sql", false, "", ""},
		{"0001_no_extension", false, "", ""},
		{"0001.sql", false, "", ""},
		{"notes.txt", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if tt.valid {
				if matches == nil {
					t.Fatalf("Expected %s to match", tt.filename)
				}
				if matches[1] != tt.version || matches[2] != tt.name {
					t.Errorf("Got version=%s name=%s, want %s/%s", matches[1], matches[2], tt.version, tt.name)
				}
			} else if matches != nil {
				t.Errorf("Expected %s not to match, got %v", tt.filename, matches)
			}
		})
	}
}
