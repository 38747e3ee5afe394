package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/pipeline"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/vfs"
	"github.com/mogaika/wow_model_browser/wmo"
)

func main() {
	var dir, file, format string
	var raw, verbose bool
	flag.StringVar(&dir, "dir", ".", "Path to extracted game files")
	flag.StringVar(&file, "file", "", "Model (.m2) or world object root (.wmo) inside -dir")
	flag.StringVar(&format, "format", "yaml", "Output format: yaml, json or spew")
	flag.BoolVar(&raw, "raw", false, "Dump decoded records instead of the scene snapshot")
	flag.BoolVar(&verbose, "v", false, "Print parse trace")
	flag.Parse()

	if file == "" {
		flag.PrintDefaults()
		return
	}

	var trace *utils.Logger
	if verbose {
		trace = &utils.Logger{Writer: os.Stderr}
	}
	src := vfs.NewDirectoryDriver(dir)
	diag := &validate.Diagnostics{}

	var v interface{}
	var err error
	switch ext := strings.ToLower(filepath.Ext(file)); {
	case ext == ".wmo" && raw:
		v, err = wmo.Read(file, src.Read, trace, diag)
	case ext == ".wmo":
		v, diag, err = pipeline.ImportWMO(src, file, nil, config.DefaultImportOptions(), nil)
	case raw:
		v, err = pipeline.ReadM2(src, file, trace, diag)
	default:
		imp := &pipeline.Importer{Log: trace}
		v, diag, err = imp.ImportM2(src, file, nil, config.DefaultImportOptions())
	}
	if err != nil {
		log.Fatalf("[m2dump] %v", err)
	}

	if err := dump(v, format); err != nil {
		log.Fatalf("[m2dump] %v", err)
	}
	for _, e := range diag.Entries {
		log.Printf("[m2dump] %v", e)
	}
}

func dump(v interface{}, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	case "spew":
		utils.Dump(v)
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}
