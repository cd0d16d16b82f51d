package points

import (
	"context"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/marekrost/mapa-psc/internal/config"
	"github.com/marekrost/mapa-psc/internal/region"
)

// ErrMissingColumn is returned when the header lacks a configured column.
var ErrMissingColumn = eris.New("points: missing column")

var codePattern = regexp.MustCompile(`^\d{5}$`)

// Stats counts what happened to the input rows.
type Stats struct {
	Rows         int `yaml:"rows"`
	Accepted     int `yaml:"accepted"`
	InvalidCode  int `yaml:"invalid_code"`
	InvalidCoord int `yaml:"invalid_coord"`
}

// Result is the grouped input. Groups are sorted by code.
type Result struct {
	Groups []region.PointGroup
	Stats  Stats
}

// LoadFile opens cfg.Path and loads it with Load.
func LoadFile(ctx context.Context, cfg config.InputConfig) (*Result, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "points: open %s", cfg.Path)
	}
	defer f.Close() //nolint:errcheck

	res, err := Load(ctx, f, cfg)
	if err != nil {
		return nil, eris.Wrapf(err, "points: load %s", cfg.Path)
	}
	return res, nil
}

// Load reads address records and groups them by postal code. Codes have
// their spaces removed and must be five digits. Coordinates accept a
// decimal comma; rows with an unparsable or zero coordinate are skipped.
func Load(ctx context.Context, r io.Reader, cfg config.InputConfig) (*Result, error) {
	delim, _ := utf8.DecodeRuneInString(cfg.Delimiter)
	if delim == utf8.RuneError {
		delim = ';'
	}
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{
		Delimiter: delim,
		Encoding:  cfg.Encoding,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var (
		cols    *columns
		colErr  error
		stats   Stats
		byCode  = make(map[string][]region.Point)
		resolve = func() {
			if cols != nil || colErr != nil {
				return
			}
			select {
			case h := <-headerCh:
				cols, colErr = findColumns(h, cfg)
			default:
			}
		}
	)
	for row := range rowCh {
		resolve()
		if colErr != nil {
			continue
		}
		stats.Rows++
		code, p, ok := parseRow(row, cols, &stats)
		if !ok {
			continue
		}
		stats.Accepted++
		byCode[code] = append(byCode[code], p)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	resolve()
	if colErr != nil {
		return nil, colErr
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	res := &Result{Groups: make([]region.PointGroup, 0, len(codes)), Stats: stats}
	for _, code := range codes {
		res.Groups = append(res.Groups, region.PointGroup{Code: code, Points: byCode[code]})
	}

	zap.L().Info("points: loaded",
		zap.String("component", "points"),
		zap.Int("rows", stats.Rows),
		zap.Int("accepted", stats.Accepted),
		zap.Int("invalid_code", stats.InvalidCode),
		zap.Int("invalid_coord", stats.InvalidCoord),
		zap.Int("groups", len(res.Groups)),
	)
	return res, nil
}

type columns struct {
	code, x, y int
}

func findColumns(header []string, cfg config.InputConfig) (*columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	lookup := func(name string) (int, error) {
		i, ok := index[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, eris.Wrapf(ErrMissingColumn, "%q", name)
		}
		return i, nil
	}

	var (
		c   columns
		err error
	)
	if c.code, err = lookup(cfg.CodeColumn); err != nil {
		return nil, err
	}
	if c.x, err = lookup(cfg.XColumn); err != nil {
		return nil, err
	}
	if c.y, err = lookup(cfg.YColumn); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseRow(row []string, c *columns, stats *Stats) (string, region.Point, bool) {
	field := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	code := strings.ReplaceAll(field(c.code), " ", "")
	if !codePattern.MatchString(code) {
		stats.InvalidCode++
		return "", region.Point{}, false
	}
	x, okX := parseCoord(field(c.x))
	y, okY := parseCoord(field(c.y))
	if !okX || !okY || x == 0 || y == 0 {
		stats.InvalidCoord++
		return "", region.Point{}, false
	}
	return code, region.Point{X: x, Y: y}, true
}

func parseCoord(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
