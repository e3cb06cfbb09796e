// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	all          bool
	verbose      bool
	header       bool
	constantPool bool
	interfaces   bool
	fields       bool
	methods      bool
	attributes   bool
	lenient      bool
)

func main() {

	var rootCmd = &cobra.Command{
		Use:   "classdumper",
		Short: "A Java class file parser built for malware analysis",
		Long:  `classdumper parses .class files and dumps their structures as JSON`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 1.0.0")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dump class file structures",
		Args:  cobra.MinimumNArgs(1),
		Run:   dump,
	}

	dumpCmd.Flags().BoolVarP(&all, "all", "a", false, "Dump everything")
	dumpCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	dumpCmd.Flags().BoolVarP(&header, "header", "", false, "Dump magic, version and access flags")
	dumpCmd.Flags().BoolVarP(&constantPool, "constantpool", "", false, "Dump the constant pool")
	dumpCmd.Flags().BoolVarP(&interfaces, "interfaces", "", false, "Dump the implemented interfaces")
	dumpCmd.Flags().BoolVarP(&fields, "fields", "", false, "Dump the field table")
	dumpCmd.Flags().BoolVarP(&methods, "methods", "", false, "Dump the method table")
	dumpCmd.Flags().BoolVarP(&attributes, "attributes", "", false, "Dump the class level attributes")
	dumpCmd.Flags().BoolVarP(&lenient, "lenient", "", false, "Keep unknown attributes instead of failing")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
