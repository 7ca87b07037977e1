// Package metrics records per-run upgrade metrics and writes them as a
// node_exporter textfile so a scraper can alert on failed or slow runs.
package metrics
