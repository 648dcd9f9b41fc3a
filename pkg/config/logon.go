package config

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"
)

// LogonEntry is one saved connection description from saplogon.ini.
type LogonEntry struct {
	Index       int
	Description string
}

// ReadLogonEntries parses the [Description] section of a saplogon.ini
// file. Entries come back ordered by item number. The format is fixed by
// SAP: numbered ItemN=value lines grouped under bracketed sections.
func ReadLogonEntries(path string) ([]LogonEntry, error) {
	file, err := os.Open(path) //#nosec G304 -- user-provided logon file
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var (
		entries   []LogonEntry
		inSection bool
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inSection = strings.EqualFold(line, "[Description]")
			continue
		}
		if !inSection {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, "Item") {
			continue
		}
		index, err := strconv.Atoi(strings.TrimPrefix(key, "Item"))
		if err != nil {
			continue
		}
		entries = append(entries, LogonEntry{
			Index:       index,
			Description: strings.TrimSpace(value),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries, nil
}
