// Command train fits the diagnosis forest from a training CSV and writes
// the model artifact the server loads at startup.
package main

import (
	"flag"
	"log/slog"
	"os"

	"triage-chatbot/internal/data"
	"triage-chatbot/internal/model"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var (
		input  = flag.String("input", "data/Training.csv", "training CSV path")
		output = flag.String("output", "data/model.gob", "model artifact path")
		trees  = flag.Int("trees", 0, "number of trees (0 = default)")
		depth  = flag.Int("depth", 0, "max tree depth (0 = default)")
		seed   = flag.Int64("seed", 0, "bootstrap seed (0 = default)")
	)
	flag.Parse()

	dataset, err := data.LoadDatasetFile(*input)
	if err != nil {
		log.Error("load training CSV", "path", *input, "error", err)
		os.Exit(1)
	}
	labels, y := dataset.EncodeLabels()
	log.Info("dataset loaded",
		"rows", len(dataset.Rows), "symptoms", len(dataset.Columns), "conditions", len(labels))

	cfg := model.DefaultFitConfig()
	if *trees > 0 {
		cfg.Trees = *trees
	}
	if *depth > 0 {
		cfg.MaxDepth = *depth
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	forest, err := model.Fit(dataset.Columns, labels, dataset.Rows, y, cfg)
	if err != nil {
		log.Error("fit forest", "error", err)
		os.Exit(1)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Error("create artifact", "path", *output, "error", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := forest.Save(f); err != nil {
		log.Error("write artifact", "path", *output, "error", err)
		os.Exit(1)
	}
	log.Info("model written", "path", *output, "trees", cfg.Trees)
}
