package collector

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"claimsledger/pkg/contracts/domain"
)

var yearDir = regexp.MustCompile(`^\d{4}/$`)

// ParseHrefs returns the link targets of an HTML directory listing in
// document order without duplicates. Parent and self links, queries and
// fragments are skipped.
func ParseHrefs(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("failed to parse listing: %w", err)
			}
			return out, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if strings.EqualFold(string(key), "href") {
					href := string(val)
					if keepHref(href) && !seen[href] {
						seen[href] = true
						out = append(out, href)
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func keepHref(href string) bool {
	if href == "" || href == "../" || href == "./" {
		return false
	}
	return !strings.HasPrefix(href, "?") && !strings.HasPrefix(href, "#")
}

// Listing is one directory page split into sub-directories and archives.
type Listing struct {
	Dirs []string
	Zips []string
	// Files holds every other file link.
	Files []string
}

// List fetches and classifies one directory listing.
func (c *Client) List(ctx context.Context, dirURL string) (*Listing, error) {
	body, err := c.GetText(ctx, dirURL)
	if err != nil {
		return nil, err
	}
	hrefs, err := ParseHrefs(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	l := &Listing{}
	for _, h := range hrefs {
		switch {
		case strings.HasSuffix(h, "/"):
			l.Dirs = append(l.Dirs, h)
		case strings.HasSuffix(strings.ToLower(h), ".zip"):
			l.Zips = append(l.Zips, h)
		default:
			l.Files = append(l.Files, h)
		}
	}
	return l, nil
}

// Discovered groups archive URLs by period. Ignored holds archive URLs
// whose names carry no recognizable period.
type Discovered struct {
	Periods map[domain.Period][]string
	Ignored []string
}

// Discover walks the base listing and its YYYY/ sub-directories.
func (c *Client) Discover(ctx context.Context, baseURL string) (*Discovered, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	d := &Discovered{Periods: make(map[domain.Period][]string)}
	root, err := c.List(ctx, base.String())
	if err != nil {
		return nil, err
	}
	d.add(base, root.Zips)

	for _, dir := range root.Dirs {
		if !yearDir.MatchString(dir) {
			continue
		}
		ref, err := url.Parse(dir)
		if err != nil {
			continue
		}
		sub := base.ResolveReference(ref)
		listing, err := c.List(ctx, sub.String())
		if err != nil {
			return nil, err
		}
		d.add(sub, listing.Zips)
	}
	return d, nil
}

func (d *Discovered) add(dir *url.URL, zips []string) {
	for _, z := range zips {
		ref, err := url.Parse(z)
		if err != nil {
			d.Ignored = append(d.Ignored, z)
			continue
		}
		full := dir.ResolveReference(ref).String()
		p, ok := ParsePeriod(ref.Path)
		if !ok {
			d.Ignored = append(d.Ignored, full)
			continue
		}
		d.Periods[p] = append(d.Periods[p], full)
	}
}

// Latest returns up to n periods, most recent last.
func (d *Discovered) Latest(n int) []domain.Period {
	periods := make([]domain.Period, 0, len(d.Periods))
	for p := range d.Periods {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	if n > 0 && len(periods) > n {
		periods = periods[len(periods)-n:]
	}
	return periods
}
