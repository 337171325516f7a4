// Package urllist reads the operator-edited file of product URLs.
package urllist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Header is written to a freshly created URL file.
const Header = "# Add one product URL per line below\n"

// ErrCreated is returned on a first run, after the URL file has been created.
var ErrCreated = errors.New("url list file created")

// Load returns the URLs listed in the file at path.
// If the file does not exist it is created with Header and ErrCreated is returned.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(Header), 0o644); err != nil {
			return nil, fmt.Errorf("create url list %s: %w", path, err)
		}
		log.Printf("Created '%s'. Please add product URLs to this file before running again.", path)
		return nil, ErrCreated
	}
	if err != nil {
		return nil, fmt.Errorf("open url list %s: %w", path, err)
	}
	defer f.Close()

	urls, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read url list %s: %w", path, err)
	}
	return urls, nil
}

// Parse returns the trimmed non-empty lines of r that do not start with '#'.
func Parse(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}
