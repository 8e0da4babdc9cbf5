package cookies

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const netscapeHeader = "# Netscape HTTP Cookie File"

var generatedHeader = []string{
	netscapeHeader,
	"# This is a generated file! Do not edit.",
	"",
}

type Record struct {
	Domain            string
	IncludeSubdomains bool
	Path              string
	Secure            bool
	Expiry            int64
	Name              string
	Value             string
}

// Jar is the single Netscape-format cookie file shared by the download
// tools. Saves replace the whole file.
type Jar struct {
	fs   afero.Fs
	path string
}

func NewJar(fs afero.Fs, path string) *Jar {
	return &Jar{fs: fs, path: path}
}

func (j *Jar) Path() string {
	return j.path
}

func (j *Jar) Exists() bool {
	ok, err := afero.Exists(j.fs, j.path)
	return err == nil && ok
}

// Save normalizes pasted cookie text and overwrites the jar with it.
func (j *Jar) Save(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no cookie data provided")
	}
	content := Normalize(text)
	if err := j.fs.Remove(j.path); err != nil && !isNotExist(j.fs, j.path) {
		log.Warn().Str("op", "cookies/jar").Err(err).Msg("could not remove old cookie file")
	}
	if err := afero.WriteFile(j.fs, j.path, []byte(content), 0600); err != nil {
		log.Error().Str("op", "cookies/jar").Err(err).Msg("error saving cookies")
		return fmt.Errorf("error saving cookies: %v", err)
	}
	log.Info().Str("op", "cookies/jar").Msgf("cookies saved to %s", j.path)
	return nil
}

// Normalize rewrites whitespace-separated cookie lines as tab-separated
// Netscape records and prepends the header when it is missing. Lines with
// fewer than seven fields are dropped.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var lines []string
	if !strings.HasPrefix(text, netscapeHeader) {
		lines = append(lines, generatedHeader...)
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			lines = append(lines, trimmed)
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 7 {
			log.Debug().Str("op", "cookies/jar").Msgf("dropping malformed cookie line with %d fields", len(fields))
			continue
		}
		value := strings.Join(fields[6:], " ")
		lines = append(lines, strings.Join(fields[:6], "\t")+"\t"+value)
	}
	return strings.Join(lines, "\n") + "\n"
}

// Load parses the jar. Malformed records are skipped.
func (j *Jar) Load() ([]Record, error) {
	f, err := j.fs.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("error opening cookie file: %v", err)
	}
	defer f.Close()
	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 7)
		if len(parts) != 7 {
			continue
		}
		expiry, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			continue
		}
		records = append(records, Record{
			Domain:            parts[0],
			IncludeSubdomains: strings.EqualFold(parts[1], "TRUE"),
			Path:              parts[2],
			Secure:            strings.EqualFold(parts[3], "TRUE"),
			Expiry:            expiry,
			Name:              parts[5],
			Value:             parts[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading cookie file: %v", err)
	}
	return records, nil
}

func isNotExist(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && !ok
}
