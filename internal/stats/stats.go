// internal/stats/stats.go
//
// Per-site visit aggregation.
//
// Context
// -------
// Published sites report traffic back for the operator dashboard.  Each
// visit is folded into one daily row per site and device class; bot
// traffic is counted separately so it never inflates the visitor numbers
// a customer sees.  The optional GeoLite2 database adds a country hint.
package stats

import (
	"context"
	"fmt"
	"net"

	surfer "github.com/avct/uasurfer"
	"github.com/jmoiron/sqlx"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

// Visit is one parsed page view.
type Visit struct {
	SiteID  uint64
	Device  string // "desktop", "mobile", "tablet", "other"
	Country string // ISO code, "" when no geo database is loaded
	IsBot   bool
}

// DailyRow is one aggregate row for the dashboard.
type DailyRow struct {
	SiteID  uint64 `db:"site_id"`
	Day     string `db:"day"`
	Device  string `db:"device"`
	Country string `db:"country"`
	Visits  int64  `db:"visits"`
	Bots    int64  `db:"bots"`
}

// Recorder folds visits into daily aggregates.  The zero value is
// invalid; use NewRecorder.
type Recorder struct {
	db  *sqlx.DB
	geo *geoip2.Reader
	log *zap.SugaredLogger
}

// NewRecorder builds a Recorder.  geoPath may be empty, in which case
// country hints are skipped.
func NewRecorder(db *sqlx.DB, geoPath string, log *zap.SugaredLogger) (*Recorder, error) {
	r := &Recorder{db: db, log: log}
	if geoPath != "" {
		reader, err := geoip2.Open(geoPath)
		if err != nil {
			return nil, fmt.Errorf("open geo database: %w", err)
		}
		r.geo = reader
	}
	return r, nil
}

// Close releases the geo database handle.
func (r *Recorder) Close() {
	if r.geo != nil {
		_ = r.geo.Close()
	}
}

// ParseVisit classifies a request's user agent and remote address.
func (r *Recorder) ParseVisit(siteID uint64, userAgent, remoteAddr string) Visit {
	ua := surfer.Parse(userAgent)

	v := Visit{SiteID: siteID, IsBot: ua.IsBot()}
	switch ua.DeviceType {
	case surfer.DeviceComputer:
		v.Device = "desktop"
	case surfer.DeviceTablet:
		v.Device = "tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		v.Device = "mobile"
	default:
		v.Device = "other"
	}

	if r.geo != nil {
		host, _, err := net.SplitHostPort(remoteAddr)
		if err != nil {
			host = remoteAddr
		}
		if ip := net.ParseIP(host); ip != nil {
			if country, err := r.geo.Country(ip); err == nil {
				v.Country = country.Country.IsoCode
			}
		}
	}
	return v
}

// Record upserts the visit into today's aggregate row.
func (r *Recorder) Record(ctx context.Context, v Visit) error {
	bots := 0
	visits := 1
	if v.IsBot {
		bots, visits = 1, 0
	}
	const q = `
        INSERT INTO site_stats (site_id, day, device, country, visits, bots)
        VALUES (?, UTC_DATE(), ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
               visits = visits + VALUES(visits),
               bots   = bots   + VALUES(bots)`
	if _, err := r.db.ExecContext(ctx, q, v.SiteID, v.Device, v.Country, visits, bots); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// BySite lists a site's aggregates for the trailing number of days.
func (r *Recorder) BySite(ctx context.Context, siteID uint64, days int) ([]DailyRow, error) {
	if days <= 0 {
		days = 30
	}
	const q = `
        SELECT site_id, day, device, country, visits, bots
        FROM   site_stats
        WHERE  site_id = ?
          AND  day >= DATE_SUB(UTC_DATE(), INTERVAL ? DAY)
        ORDER  BY day DESC`
	var rows []DailyRow
	if err := r.db.SelectContext(ctx, &rows, q, siteID, days); err != nil {
		return nil, err
	}
	return rows, nil
}
