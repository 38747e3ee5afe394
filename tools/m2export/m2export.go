package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/pipeline"
	"github.com/mogaika/wow_model_browser/scene/gltfscene"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/wmo"
)

func main() {
	var in, out, options, selected, version, forward string
	var scale float64
	var merge, fill, verbose bool
	flag.StringVar(&in, "in", "", "Path to .gltf/.glb scene, or .json world object source")
	flag.StringVar(&out, "out", "", "Path to result .m2 or .wmo, sidecars are written next to it")
	flag.StringVar(&options, "options", "", "Path to yaml options file")
	flag.StringVar(&selected, "selected", "", "Comma separated mesh names, only these are exported")
	flag.StringVar(&version, "version", "", "Client version override (WotLK, Cata, MoP, WoD, Legion, BfA, SL, DF)")
	flag.StringVar(&forward, "forward", "", "Forward axis override (+Y, -Y, +X, -X)")
	flag.Float64Var(&scale, "scale", 0, "Scale override")
	flag.BoolVar(&merge, "merge", false, "Merge equal vertices")
	flag.BoolVar(&fill, "fill", false, "Write embedded images of textures without a path next to the model")
	flag.BoolVar(&verbose, "v", false, "Verbose log")
	flag.Parse()

	if in == "" || out == "" {
		flag.PrintDefaults()
		return
	}

	opts := config.DefaultExportOptions()
	if options != "" {
		o, err := config.LoadOptions(options)
		if err != nil {
			log.Fatal(err)
		}
		opts = o.Export
	}
	if version != "" {
		v, err := config.ParseVersion(version)
		if err != nil {
			log.Fatal(err)
		}
		opts.Version = v
	}
	if forward != "" {
		opts.ForwardAxis = config.ForwardAxis(forward)
	}
	if scale != 0 {
		opts.Scale = float32(scale)
	}
	opts.MergeVertices = opts.MergeVertices || merge
	opts.FillTextures = opts.FillTextures || fill

	var names []string
	if selected != "" {
		names = strings.Split(selected, ",")
		opts.SelectedOnly = true
	}

	e := &pipeline.Exporter{DiagLog: log.Default()}
	if verbose {
		e.Log = &utils.Logger{Writer: os.Stdout}
	}
	defer e.Close()

	var diag *validate.Diagnostics
	var err error
	switch strings.ToLower(filepath.Ext(in)) {
	case ".json":
		diag, err = exportWMO(e, in, out, opts)
	default:
		diag, err = exportM2(e, in, out, names, opts)
	}
	if err != nil {
		log.Fatalf("[m2export] %v", err)
	}
	log.Printf("[m2export] %s: %s", out, diag.Summary())
}

func exportM2(e *pipeline.Exporter, in, out string, names []string, opts config.ExportOptions) (*validate.Diagnostics, error) {
	f, err := os.Open(in)
	if err != nil {
		return nil, validate.IO(in, err)
	}
	defer f.Close()

	adapter, err := gltfscene.Open(f)
	if err != nil {
		return nil, validate.Format(in, err)
	}
	adapter.Log = e.Log
	return e.ExportM2FromScene(adapter, names, out, opts)
}

func exportWMO(e *pipeline.Exporter, in, out string, opts config.ExportOptions) (*validate.Diagnostics, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, validate.IO(in, err)
	}
	var src wmo.Source
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, validate.Format(in, err)
	}
	return e.ExportWMO(&src, out, opts)
}
