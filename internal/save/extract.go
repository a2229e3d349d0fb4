// Package save reads facts out of a compressed save archive.
//
// The archive is a zip with a small "meta" member and a large "gamestate"
// member, both in the brace/tab text format. Facets are mined from the
// decompressed document independently: a missing section only empties its
// own facet. Two conditions are fatal, an unreadable archive and a save
// without a player.
package save

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/techdraw/internal/diag"
)

var tracer = otel.Tracer("github.com/xtding233/techdraw/internal/save")

var (
	ErrMalformedArchive = errors.New("save: malformed archive")
	ErrNoPlayer         = errors.New("save: no player country")
)

const (
	MetaMember      = "meta"
	GamestateMember = "gamestate"

	DefaultMaxBytes int64 = 256 << 20

	source = "save"
)

type Options struct {
	// MaxBytes caps how much of the gamestate is decompressed and scanned.
	MaxBytes int64
}

// Leader is a research-relevant leader owned by the player.
type Leader struct {
	ID     string
	Class  string
	Traits []string
}

// Extraction holds the raw facet values. Nothing here is mapped to facts
// yet; that is the projector's job.
type Extraction struct {
	Version string
	Name    string
	Date    string

	Player  string
	Country string

	Ethics       []string
	Authority    string
	Civics       []string
	Origin       string
	Perks        []string
	Technologies []string
	Traits       []string
	Leaders      []Leader

	Colonies int
	Year     int

	Diagnostics []diag.Entry
}

// ExtractFile is Extract for an archive held in memory.
func ExtractFile(ctx context.Context, data []byte, opts Options) (*Extraction, error) {
	return Extract(ctx, bytes.NewReader(data), int64(len(data)), opts)
}

// Extract reads the archive in r. On a fatal error the returned Extraction
// is empty apart from an error diagnostic.
func Extract(ctx context.Context, r io.ReaderAt, size int64, opts Options) (*Extraction, error) {
	ctx, span := tracer.Start(ctx, "save.extract")
	defer span.End()
	span.SetAttributes(attribute.Int64("archive.bytes", size))

	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	fail := func(err error) (*Extraction, error) {
		span.RecordError(err)
		var log diag.Log
		log.Errorf(source, "%v", err)
		return &Extraction{Diagnostics: log.Entries()}, err
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrMalformedArchive, err))
	}
	var log diag.Log
	meta, _, err := readMember(zr, MetaMember, 1<<20)
	if err != nil && !errors.Is(err, errNoMember) {
		return fail(err)
	}
	if errors.Is(err, errNoMember) {
		log.Warnf(source, "archive has no %q member", MetaMember)
	}
	doc, truncated, err := readMember(zr, GamestateMember, opts.MaxBytes)
	if err != nil {
		if errors.Is(err, errNoMember) {
			err = fmt.Errorf("%w: no %q member", ErrMalformedArchive, GamestateMember)
		}
		return fail(err)
	}
	if truncated {
		log.Warnf(source, "gamestate larger than %d bytes; scanned a prefix only", opts.MaxBytes)
	}
	span.SetAttributes(attribute.Int("gamestate.bytes", len(doc)))

	ex := &Extraction{}
	ex.readMeta(meta, &log)

	player, ok := Section(doc, "player")
	if !ok {
		return fail(ErrNoPlayer)
	}
	for _, p := range Anonymous(player) {
		if c, ok := Value(p, "country"); ok {
			ex.Player, _ = Value(p, "name")
			ex.Country = c
			break
		}
	}
	if ex.Country == "" {
		return fail(ErrNoPlayer)
	}

	if err := ex.mine(ctx, doc, &log); err != nil {
		span.RecordError(err)
		return nil, err
	}
	log.Successf(source, "extracted %d technologies, %d ethics, %d perks for %q",
		len(ex.Technologies), len(ex.Ethics), len(ex.Perks), ex.Player)
	ex.Diagnostics = log.Entries()
	return ex, nil
}

var errNoMember = errors.New("member not found")

func readMember(zr *zip.Reader, name string, limit int64) (string, bool, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", false, fmt.Errorf("%w: open %s: %v", ErrMalformedArchive, name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(io.LimitReader(rc, limit+1))
		if err != nil {
			return "", false, fmt.Errorf("%w: read %s: %v", ErrMalformedArchive, name, err)
		}
		truncated := int64(len(b)) > limit
		if truncated {
			b = b[:limit]
		}
		return string(b), truncated, nil
	}
	return "", false, errNoMember
}

func (ex *Extraction) readMeta(meta string, log *diag.Log) {
	if meta == "" {
		return
	}
	ex.Version, _ = Value(meta, "version")
	ex.Name, _ = Value(meta, "name")
	ex.Date, _ = Value(meta, "date")
	log.Infof(source, "save %q version %q date %q", ex.Name, ex.Version, ex.Date)
}

// facet is one independent extraction job. It writes only its own fields
// of the Extraction and its own log.
type facet struct {
	name string
	run  func(doc, country string, ex *Extraction, log *diag.Log)
}

var facets = []facet{
	{"ethics", mineEthics},
	{"government", mineGovernment},
	{"perks", minePerks},
	{"technologies", mineTechnologies},
	{"scalars", mineScalars},
	{"species", mineSpecies},
	{"leaders", mineLeaders},
}

func (ex *Extraction) mine(ctx context.Context, doc string, log *diag.Log) error {
	countries, ok := Section(doc, "country")
	var country string
	if ok {
		country, ok = Record(countries, ex.Country)
	}
	if !ok {
		log.Warnf(source, "player country %s not found; country facets are empty", ex.Country)
	}

	parts := make([]Extraction, len(facets))
	logs := make([]diag.Log, len(facets))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range facets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, span := tracer.Start(ctx, "save.facet."+f.name)
			defer span.End()
			f.run(doc, country, &parts[i], &logs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range facets {
		p := &parts[i]
		ex.Ethics = append(ex.Ethics, p.Ethics...)
		if p.Authority != "" {
			ex.Authority = p.Authority
		}
		ex.Civics = append(ex.Civics, p.Civics...)
		if p.Origin != "" {
			ex.Origin = p.Origin
		}
		ex.Perks = append(ex.Perks, p.Perks...)
		ex.Technologies = append(ex.Technologies, p.Technologies...)
		ex.Traits = append(ex.Traits, p.Traits...)
		ex.Leaders = append(ex.Leaders, p.Leaders...)
		ex.Colonies += p.Colonies
		if p.Year != 0 {
			ex.Year = p.Year
		}
		log.Append(logs[i].Entries()...)
	}
	return nil
}

func mineEthics(_, country string, ex *Extraction, log *diag.Log) {
	ethos, ok := Block(country, "ethos")
	if !ok {
		log.Warnf(source, "section ethos missing")
		return
	}
	ex.Ethics = Values(ethos, "ethic")
}

func mineGovernment(_, country string, ex *Extraction, log *diag.Log) {
	gov, ok := Block(country, "government")
	if !ok {
		log.Warnf(source, "section government missing")
		return
	}
	ex.Authority, _ = Value(gov, "authority")
	ex.Civics = Values(gov, "civics")
	ex.Origin, _ = Value(gov, "origin")
}

func minePerks(_, country string, ex *Extraction, log *diag.Log) {
	// No perks is normal early in a game.
	ex.Perks = Values(country, "ascension_perks")
	if len(ex.Perks) == 0 {
		log.Infof(source, "no ascension_perks recorded")
	}
}

func mineTechnologies(_, country string, ex *Extraction, log *diag.Log) {
	status, ok := Block(country, "tech_status")
	if !ok {
		log.Warnf(source, "section tech_status missing")
		return
	}
	ex.Technologies = Values(status, "technology")
}

func mineScalars(doc, country string, ex *Extraction, log *diag.Log) {
	if planets, ok := Block(country, "owned_planets"); ok {
		ex.Colonies = len(List(planets))
	} else {
		log.Infof(source, "section owned_planets missing; colonies defaulted to 0")
	}
	date, ok := Value(doc, "date")
	if !ok {
		log.Warnf(source, "gamestate date missing")
		return
	}
	y, _, _ := strings.Cut(date, ".")
	year, err := strconv.Atoi(y)
	if err != nil {
		log.Warnf(source, "unreadable date %q", date)
		return
	}
	ex.Year = year
}

// mineSpecies follows founder_species_ref into species_db.
func mineSpecies(doc, country string, ex *Extraction, log *diag.Log) {
	ref, ok := Value(country, "founder_species_ref")
	if !ok {
		log.Warnf(source, "founder species reference missing")
		return
	}
	db, ok := Section(doc, "species_db")
	if !ok {
		log.Warnf(source, "section species_db missing")
		return
	}
	species, ok := Record(db, ref)
	if !ok {
		log.Warnf(source, "founder species %s not found", ref)
		return
	}
	if traits, ok := Block(species, "traits"); ok {
		ex.Traits = Values(traits, "trait")
	}
}

// mineLeaders follows owned_leaders into the leaders section.
func mineLeaders(doc, country string, ex *Extraction, log *diag.Log) {
	owned, ok := Block(country, "owned_leaders")
	if !ok {
		log.Infof(source, "section owned_leaders missing; no leaders")
		return
	}
	ids := List(owned)
	if len(ids) == 0 {
		return
	}
	leaders, ok := Section(doc, "leaders")
	if !ok {
		log.Warnf(source, "section leaders missing")
		return
	}
	bodies := Records(leaders, ids)
	for _, id := range ids {
		body, ok := bodies[id]
		if !ok {
			log.Infof(source, "leader %s not found", id)
			continue
		}
		class, _ := Value(body, "class")
		ex.Leaders = append(ex.Leaders, Leader{ID: id, Class: class, Traits: Values(body, "traits")})
	}
}
