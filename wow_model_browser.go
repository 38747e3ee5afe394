package main

import (
	"flag"
	"log"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/vfs"
	"github.com/mogaika/wow_model_browser/web"
)

func main() {
	var addr, dir, out, options, encoding string
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&dir, "dir", "", "Path to extracted game files")
	flag.StringVar(&out, "out", "", "Directory uploaded glTF models are exported to, empty disables uploads")
	flag.StringVar(&options, "options", "", "Path to yaml file with import and export options")
	flag.StringVar(&encoding, "encoding", "", "Charmap of strings in game files, like \"Windows 1251\"")
	flag.Parse()

	if dir == "" {
		flag.PrintDefaults()
		return
	}

	if options != "" {
		opts, err := config.LoadOptions(options)
		if err != nil {
			log.Fatal(err)
		}
		web.ServerOptions = opts
		if encoding == "" {
			encoding = opts.Encoding
		}
	}
	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			log.Fatal(err)
		}
	}

	web.OutputDirectory = out

	if err := web.StartServer(addr, vfs.NewDirectoryDriver(dir), "web"); err != nil {
		log.Fatal(err)
	}
}
