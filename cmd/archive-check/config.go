package main

import (
	"flag"
)

type FlagType int
type FlagMap map[FlagType]string

const (
	catalogPath FlagType = iota
	archivePath
	beanPrefix

	logFormat
)

func parseExternalConfig(flags FlagMap) FlagMap {
	var catalog, archive, prefix, format string

	flag.StringVar(&catalog, "catalog", flags[catalogPath], "path to a type catalog to register on top of the governance model")
	flag.StringVar(&archive, "archive", flags[archivePath], "path to a json archive of entities, reads from postgres if empty")
	flag.StringVar(&prefix, "bean-prefix", flags[beanPrefix], "prefix of the bean names to convert entities to")
	flag.StringVar(&format, "log-format", flags[logFormat], "log format, json or text")
	flag.Parse()

	flags[catalogPath] = catalog
	flags[archivePath] = archive
	flags[beanPrefix] = prefix
	flags[logFormat] = format

	return flags
}

func defaultFlags() FlagMap {
	return FlagMap{
		catalogPath: "",
		archivePath: "",
		beanPrefix:  "",

		logFormat: "json",
	}
}
