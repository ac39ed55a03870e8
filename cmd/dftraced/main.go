//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
//
// Command dftraced is the standalone trace daemon: it builds its Config
// from environment variables only, starts a Logger, and blocks until
// SIGINT, at which point it finalizes the trace file and exits 0. It
// takes no command-line arguments.
package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/golang/glog"

	"github.com/anku94/dftracer/config"
	"github.com/anku94/dftracer/dftracer"
)

func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warningf("dftraced: %s=%q is not a bool, using default %v", name, v, def)
		return def
	}
	return b
}

func envInt(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warningf("dftraced: %s=%q is not an int, using default %d", name, v, def)
		return def
	}
	return n
}

func buildConfig() (*config.Config, error) {
	return config.New(
		config.WithLogFile(os.Getenv("DFTRACER_LOG_FILE")),
		config.WithEnable(envBool("DFTRACER_ENABLE", true)),
		config.WithMetadata(envBool("DFTRACER_METADATA", true)),
		config.WithCompression(envBool("DFTRACER_COMPRESSION", false)),
		config.WithWriteBufferSize(envInt("DFTRACER_WRITE_BUFFER_SIZE", config.DefaultWriteBufferSize)),
		config.WithTraceIntervalMs(uint32(envInt("DFTRACER_TRACE_INTERVAL_MS", config.DefaultTraceIntervalMs))),
	)
}

func main() {
	cfg, err := buildConfig()
	if err != nil {
		log.Exitf("dftraced: configuration: %v", err)
	}

	logger, err := dftracer.New(cfg, int32(os.Getpid()))
	if err != nil {
		log.Exitf("dftraced: %v", err)
	}
	if err := logger.Start(); err != nil {
		log.Exitf("dftraced: start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	<-sigCh

	if err := logger.Finalize(); err != nil {
		log.Errorf("dftraced: finalize: %v", err)
	}
	os.Exit(0)
}
