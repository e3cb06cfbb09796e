// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	classparser "github.com/saferwall/jclass"
	"github.com/saferwall/jclass/log"
	"github.com/spf13/cobra"
)

func prettyPrint(iface interface{}) string {
	var prettyJSON bytes.Buffer
	buff, _ := json.Marshal(iface)
	err := json.Indent(&prettyJSON, buff, "", "\t")
	if err != nil {
		log.Errorf("JSON parse error: %v", err)
		return string(buff)
	}

	return prettyJSON.String()
}

func hexDump(b []byte) {
	var a [16]byte
	n := (len(b) + 15) &^ 15
	for i := 0; i < n; i++ {
		if i%16 == 0 {
			fmt.Printf("%4d", i)
		}
		if i%8 == 0 {
			fmt.Print(" ")
		}
		if i < len(b) {
			fmt.Printf(" %02X", b[i])
		} else {
			fmt.Print("   ")
		}
		if i >= len(b) {
			a[i%16] = ' '
		} else if b[i] < 32 || b[i] > 126 {
			a[i%16] = '.'
		} else {
			a[i%16] = b[i]
		}
		if i%16 == 15 {
			fmt.Printf("  %s\n", string(a[:]))
		}
	}
}

func isDirectory(path string) bool {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fileInfo.IsDir()
}

func parseClass(filename string) {
	log.Printf("Processing filename %s", filename)

	cls, err := classparser.New(filename, &classparser.Options{
		KeepUnknownAttributes: lenient,
	})
	if err != nil {
		log.Printf("Error while opening file: %s, reason: %s", filename, err)
		return
	}
	defer cls.Close()

	err = cls.Parse()
	if err != nil {
		log.Printf("Error while parsing file: %s, reason: %s", filename, err)
		return
	}

	if header || all {
		name, _ := cls.ClassName()
		fmt.Printf("Class name : %s\n", name)
		fmt.Printf("Magic      : 0x%08X\n", cls.Magic)
		fmt.Printf("Version    : %d.%d\n", cls.MajorVersion, cls.MinorVersion)
		fmt.Printf("Flags      : 0x%04X\n", cls.AccessFlags)
	}

	if constantPool || all {
		fmt.Println(prettyPrint(cls.ConstantPool))
	}

	if interfaces || all {
		fmt.Println(prettyPrint(cls.Interfaces))
	}

	if fields || all {
		fmt.Println(prettyPrint(cls.Fields))
	}

	if methods || all {
		fmt.Println(prettyPrint(cls.Methods))
		if verbose {
			for i := range cls.Methods {
				if code := cls.Methods[i].Code(); code != nil {
					name, _ := cls.Methods[i].Name(&cls.ConstantPool)
					fmt.Printf("Bytecode of %s:\n", name)
					hexDump(code.Code)
				}
			}
		}
	}

	if attributes || all {
		fmt.Println(prettyPrint(cls.Attributes))
	}

	if len(cls.Anomalies) > 0 {
		fmt.Println(prettyPrint(cls.Anomalies))
	}
}

func dump(cmd *cobra.Command, args []string) {
	filePath := args[0]

	// filePath points to a file.
	if !isDirectory(filePath) {
		parseClass(filePath)

	} else {
		// filePath points to a directory,
		// walk recursively through all files.
		fileList := []string{}
		filepath.Walk(filePath, func(path string, f os.FileInfo, err error) error {
			if !isDirectory(path) {
				fileList = append(fileList, path)
			}
			return nil
		})

		for _, file := range fileList {
			parseClass(file)
		}
	}
}
