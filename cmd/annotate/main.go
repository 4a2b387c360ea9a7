// annotate is a command-line tool for submitting zone annotations to the
// sanitization service.
//
// It takes a batch of PDF documents plus a zone file saved from an annotation
// session, validates the documents' geometry, and either exports a proof sheet
// of what will be redacted or submits the batch for sanitization. When the
// service reports low-confidence pages, the tool can fetch the sanitized
// outputs and run the secondary pass over them.
//
// Usage:
//
//	annotate -config service.yaml -pdfs a.pdf,b.pdf [options]
//
// Required flags:
//
//	-config string  Path to the service config YAML file
//	-pdfs string    Comma-separated list of input PDF files
//
// Options:
//
//	-zones string   Path to a zone file (JSON) from an annotation session
//	-terms string   Comma-separated extra sensitive terms
//	-proof string   Write a proof-sheet PDF of all zones to this path
//	-submit         Submit the batch to the sanitization service
//	-secondary      After a submit that flags pages, fetch the outputs and run the second pass
//	-out string     Directory for fetched secondary-batch documents (default ".")
//
// Example:
//
//	annotate -config service.yaml -pdfs plan.pdf -zones zones.json -submit -secondary
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pdfsan/annotate/pkg/annotate"
	"github.com/pdfsan/annotate/pkg/geom"
	"github.com/pdfsan/annotate/pkg/pagerender"
	"github.com/pdfsan/annotate/pkg/preview"
	"github.com/pdfsan/annotate/pkg/sanitize"
	"github.com/pdfsan/annotate/pkg/session"
)

type yamlConfig struct {
	BaseURL    string  `yaml:"base_url"`
	ClientName string  `yaml:"client_name"`
	DeviceID   string  `yaml:"device_id"`
	Threshold  float64 `yaml:"threshold"`
}

// loadConfig reads a YAML file and converts it to a sanitization service config
func loadConfig(path string) (sanitize.Config, error) {
	cfg := sanitize.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return cfg, err
	}
	cfg.BaseURL = yc.BaseURL
	cfg.ClientName = yc.ClientName
	cfg.DeviceID = yc.DeviceID
	if yc.Threshold > 0 {
		cfg.Threshold = yc.Threshold
	}
	return cfg, nil
}

// zoneFile is the on-disk form of a saved annotation session: the zone
// descriptors plus the index-keyed logo asset map.
type zoneFile struct {
	Zones    []annotate.ZoneDescriptor `json:"zones"`
	ImageMap map[int]string            `json:"image_map"`
}

func loadZones(path string) (annotate.ZonePayload, error) {
	var zf zoneFile
	data, err := os.ReadFile(path)
	if err != nil {
		return annotate.ZonePayload{}, err
	}
	if err := json.Unmarshal(data, &zf); err != nil {
		return annotate.ZonePayload{}, fmt.Errorf("parse zone file: %w", err)
	}
	if zf.ImageMap == nil {
		zf.ImageMap = map[int]string{}
	}
	return annotate.ZonePayload{Zones: zf.Zones, ImageMap: zf.ImageMap}, nil
}

func main() {
	configPath := flag.String("config", "", "Path to the service config YAML file (required)")
	pdfList := flag.String("pdfs", "", "Comma-separated list of input PDF files (required)")
	zonesPath := flag.String("zones", "", "Path to a zone file saved from an annotation session")
	termList := flag.String("terms", "", "Comma-separated extra sensitive terms")
	proofPath := flag.String("proof", "", "Write a proof-sheet PDF of all zones to this path")
	doSubmit := flag.Bool("submit", false, "Submit the batch to the sanitization service")
	doSecondary := flag.Bool("secondary", false, "Fetch flagged outputs and run the second pass")
	outDir := flag.String("out", ".", "Directory for fetched secondary-batch documents")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *pdfList == "" {
		fmt.Fprintln(os.Stderr, "Error: -pdfs flag is required")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *doSecondary && !*doSubmit {
		fmt.Fprintln(os.Stderr, "Error: -secondary requires -submit")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Load and validate the input documents' geometry up front.
	var docs []*pagerender.Document
	var files []sanitize.File
	for _, p := range strings.Split(*pdfList, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", p, err)
			os.Exit(1)
		}
		doc := pagerender.NewDocument(filepath.Base(p), data)
		if err := doc.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid document %s: %v\n", p, err)
			os.Exit(1)
		}
		pages, _ := doc.PageCount()
		w, h, _ := doc.Dim(0)
		paper, orientation := pagerender.ClassifyPage(w, h)
		fmt.Printf("%s: %d pages, %s %s (%.0fx%.0f pts)\n", doc.Name, pages, paper, orientation, w, h)
		docs = append(docs, doc)
		files = append(files, sanitize.File{Name: doc.Name, Data: data})
	}
	if len(docs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input documents")
		os.Exit(1)
	}

	var payload annotate.ZonePayload
	if *zonesPath != "" {
		payload, err = loadZones(*zonesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load zones: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d zones (%d logo placements)\n", len(payload.Zones), len(payload.ImageMap))
	}

	if *proofPath != "" {
		if err := writeProof(*proofPath, docs, payload); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write proof sheet: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Proof sheet written:", *proofPath)
	}

	if !*doSubmit {
		return
	}

	var terms []string
	for _, t := range strings.Split(*termList, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}

	ctx := context.Background()
	client := sanitize.NewClient(cfg)
	sess := session.New(annotate.NewMachine())
	sess.SetPrimary(docs)

	result, err := client.Submit(ctx, sanitize.Submission{
		Files:       files,
		Zones:       payload,
		ManualTerms: terms,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Submission failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Sanitized archive:", result.ZipURL)
	for _, out := range result.Outputs {
		fmt.Printf("  %s -> %s\n", out.Name, out.URL)
	}

	report := result.Report()
	if len(report.Entries) == 0 {
		fmt.Println("All pages passed the confidence threshold.")
		return
	}
	for _, entry := range report.Entries {
		fmt.Printf("Low confidence: %s pages %v\n", entry.Document, entry.Pages())
	}
	if !*doSecondary {
		return
	}

	// Second pass: fetch the flagged outputs and resubmit them.
	fetched, err := client.FetchSecondaryBatch(ctx, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Secondary batch failed: %v\n", err)
		os.Exit(1)
	}
	var secondaryDocs []*pagerender.Document
	for _, f := range fetched {
		dst := filepath.Join(*outDir, f.Name)
		if err := os.WriteFile(dst, f.Data, 0666); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save %s: %v\n", dst, err)
			os.Exit(1)
		}
		secondaryDocs = append(secondaryDocs, pagerender.NewDocument(f.Name, f.Data))
	}
	sess.SwitchToSecondary(secondaryDocs, result.Client, report)
	for _, doc := range sess.ActiveDocuments() {
		fmt.Printf("Secondary: %s, re-annotate pages %v\n", doc.Name, sess.LowConfidencePagesFor(doc))
	}

	secondResult, err := client.Submit(ctx, sanitize.Submission{
		Files:     fetched,
		Zones:     payload,
		Secondary: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Secondary submission failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Secondary archive:", secondResult.ZipURL)
}

// writeProof converts the wire descriptors back to zones and renders them.
func writeProof(path string, docs []*pagerender.Document, payload annotate.ZonePayload) error {
	if len(payload.Zones) == 0 {
		return fmt.Errorf("no zones loaded")
	}
	zones := make([]annotate.Zone, len(payload.Zones))
	actions := make(map[int]annotate.Action, len(payload.Zones))
	for i, d := range payload.Zones {
		id := i + 1
		zones[i] = annotate.Zone{
			ID: id,
			Rect: geom.Rect{
				X: d.BBox[0], Y: d.BBox[1],
				W: d.BBox[2] - d.BBox[0], H: d.BBox[3] - d.BBox[1],
			},
			FileIndex:   d.FileIndex,
			Page:        d.Page,
			PaperClass:  pagerender.PaperClass(d.Paper),
			Orientation: pagerender.Orientation(d.Orientation),
		}
		if key, ok := payload.ImageMap[i]; ok {
			actions[id] = annotate.Action{Kind: annotate.ActionPlaceLogo, LogoKey: key}
		} else {
			actions[id] = annotate.Action{Kind: annotate.ActionRedact}
		}
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return preview.WriteProofSheet(f, names, zones, actions)
}
