package vm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/winds"
)

// Point is a wind record observed at a given time in the output of a given
// displacement source.
type Point struct {
	Time   time.Time
	Source string
	winds.Record
}

// Client is a Victoria Metrics client capable of inserting wind records via
// various protocols.
type Client struct {
	logger       *slog.Logger
	httpCli      *http.Client
	insertURL    string
	metricPrefix string
	recToText    recToTextFunc
}

const metricPrefixRE = "^[a-zA-Z0-9]+$"

// NewClient creates a new VM client.
func NewClient(logger *slog.Logger, insertURL string, maxConns int, metricPrefix string) (*Client, error) {
	url, err := url.Parse(insertURL)
	if err != nil {
		return nil, errs.Errorf(errs.EINVALID, "invalid insert URL %q: %v", insertURL, err)
	}

	matches, err := regexp.MatchString(metricPrefixRE, metricPrefix)
	if err != nil {
		return nil, err
	}
	if !matches {
		return nil, errs.Errorf(errs.EINVALID, "metric prefix %q does not match %q regular expression", metricPrefix, metricPrefixRE)
	}

	apiParams := apiParamsFuncs[url.Path]
	recToText := recToTextFuncs[url.Path]
	if apiParams == nil || recToText == nil {
		return nil, errs.Errorf(errs.EINVALID, "inserting into %q is not supported", insertURL)
	}
	q := url.Query()
	for name, value := range apiParams(metricPrefix) {
		q.Add(name, value)
	}
	url.RawQuery = q.Encode()

	return &Client{
		logger: logger,
		httpCli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        maxConns,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
			},
		},
		insertURL:    url.String(),
		metricPrefix: metricPrefix,
		recToText:    recToText,
	}, nil
}

// Insert inserts wind records into Victoria Metrics.
func (c *Client) Insert(ctx context.Context, points []Point) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.insertURL, pointsToText(points, c.metricPrefix, c.recToText))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	res, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("could not post data: %w", err)
	}
	defer res.Body.Close()
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		c.logger.Error("Failed to drain response body", "err", err)
	}
	if res.StatusCode != http.StatusNoContent {
		return errs.Errorf(errs.EINTERNAL, "unexpected status %d from %s", res.StatusCode, c.insertURL)
	}
	return nil
}

type apiParamsFunc func(string) map[string]string

var apiParamsFuncs = map[string]apiParamsFunc{
	"/influx/write":        influxDBAPIParams,
	"/influx/api/v2/write": influxDBAPIParams,
	"/write":               influxDBAPIParams,
	"/api/v2/write":        influxDBAPIParams,
	"/api/v1/import/csv":   csvAPIParams,
}

func influxDBAPIParams(metricPrefix string) map[string]string {
	return nil
}

func csvAPIParams(metricPrefix string) map[string]string {
	return map[string]string{
		"format": fmt.Sprintf(""+
			"1:time:unix_ms,"+
			"2:label:source,"+
			"3:label:la,"+
			"4:label:lo,"+
			"5:metric:%[1]s_speed,"+
			"6:metric:%[1]s_angle,"+
			"7:metric:%[1]s_v,"+
			"8:metric:%[1]s_u", metricPrefix),
	}
}

type recToTextFunc func(*strings.Builder, *Point, string)

// pointsToText converts multiple points to text.
func pointsToText(points []Point, metricPrefix string, recToText recToTextFunc) io.Reader {
	var sb strings.Builder
	for _, p := range points {
		recToText(&sb, &p, metricPrefix)
		sb.WriteString("\n")
	}
	return strings.NewReader(sb.String())
}

var recToTextFuncs = map[string]recToTextFunc{
	"/influx/write":        recToInfluxDB,
	"/influx/api/v2/write": recToInfluxDB,
	"/write":               recToInfluxDB,
	"/api/v2/write":        recToInfluxDB,
	"/api/v1/import/csv":   recToCSV,
}

var influxDBFmt = "%s,source=%s,la=%.2f,lo=%.2f speed=%s,angle=%s,v=%s,u=%s %d"

var tagEscaper = strings.NewReplacer(",", `\,`, " ", `\ `, "=", `\=`)

// recToInfluxDB converts a point into InfluxDB line protocol v2 and appends
// it to the string builder.
func recToInfluxDB(sb *strings.Builder, p *Point, metricPrefix string) {
	fmt.Fprintf(sb, influxDBFmt,
		metricPrefix,
		tagEscaper.Replace(p.Source),
		p.Latitude,
		p.Longitude,
		num(p.Speed),
		num(p.Angle),
		num(p.V),
		num(p.U),
		p.Time.UnixNano(),
	)
}

var csvFmt = "%d,%s,%.2f,%.2f,%s,%s,%s,%s"

// recToCSV converts a point into a CSV record and appends it to the string
// builder.
func recToCSV(sb *strings.Builder, p *Point, _ string) {
	fmt.Fprintf(sb, csvFmt,
		p.Time.UnixMilli(),
		strings.ReplaceAll(p.Source, ",", "_"),
		p.Latitude,
		p.Longitude,
		num(p.Speed),
		num(p.Angle),
		num(p.V),
		num(p.U),
	)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
