// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kfusebridge

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"sync"
)

var fEnableDebug = flag.Bool(
	"kfuse.debug",
	false,
	"Write kfusebridge debugging messages to stderr.")

var gDebugLogger *log.Logger
var gDebugLoggerOnce sync.Once

func initDebugLogger() {
	var writer io.Writer = ioutil.Discard
	if flag.Parsed() && *fEnableDebug {
		writer = os.Stderr
	}

	const flags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
	gDebugLogger = log.New(writer, "kfusebridge: ", flags)
}

func debugLogger() *log.Logger {
	gDebugLoggerOnce.Do(initDebugLogger)
	return gDebugLogger
}

// debugf logs a debug-only line tagged with the context's ticket.
func debugf(ticket uint64, format string, v ...interface{}) {
	debugLogger().Output(2, fmt.Sprintf("[%d] %s", ticket, fmt.Sprintf(format, v...)))
}

// errorLogger is always on, unlike debugLogger.
var errorLogger = log.New(os.Stderr, "kfusebridge: ", log.Ldate|log.Ltime|log.Lmicroseconds)

func errorf(ticket uint64, format string, v ...interface{}) {
	errorLogger.Output(2, fmt.Sprintf("[%d] %s", ticket, fmt.Sprintf(format, v...)))
}
