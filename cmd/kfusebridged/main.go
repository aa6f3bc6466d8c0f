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

// Command kfusebridged is a standalone harness for exercising a
// kfusebridge Instance without a real host filesystem framework or kernel
// FUSE device: it wires command-line/config flags into a VolumeParams, a
// Provider, and an in-memory loopback fsext.Host that answers a handful of
// canned LOOKUP requests, then runs a short transact loop and
// prints what it observed. It exists to smoke-test the engine end to end,
// not to mount anything real.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fspbridge/kfusebridge"
	"github.com/fspbridge/kfusebridge/fsext"
	"github.com/fspbridge/kfusebridge/internal/wire"
	"github.com/fspbridge/kfusebridge/metrics"
	"github.com/fspbridge/kfusebridge/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "kfusebridged",
		Short: "Run a kfusebridge Instance against a loopback smoke-test host.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	bindFlags(cmd.Flags(), v)
	v.SetEnvPrefix("KFUSEBRIDGED")
	v.AutomaticEnv()

	return cmd
}

// bindFlags defines the daemon's flags directly against a *pflag.FlagSet
// (rather than relying on cobra's embedded flag set implicitly) and binds
// each to v, mirroring the flag/env/viper precedence gcsfuse's cfg package
// sets up for its own command.
func bindFlags(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("case-sensitive", true, "negotiate a case-sensitive volume")
	flags.Duration("cache-ttl", 2*time.Minute, "metadata cache entry lifetime")
	flags.String("metrics-addr", "", "address to serve Prometheus metrics on; empty disables it")
	flags.Int("requests", 3, "number of canned loopback requests to drive through the engine")

	_ = v.BindPFlags(flags)
}

func run(v *viper.Viper) error {
	params := model.DefaultVolumeParams()
	params.CaseSensitive = v.GetBool("case-sensitive")
	params.CasePreserved = params.CaseSensitive

	host := newLoopbackHost(v.GetInt("requests"))

	provider := kfusebridge.NewProvider(host, v.GetDuration("cache-ttl"), nil)
	if st := provider.DeviceInit(params); !st.Ok() {
		return fmt.Errorf("device init refused: %s", st)
	}
	defer provider.DeviceFini()

	if addr := v.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		collectors := metrics.New("loopback")
		collectors.MustRegister(reg)
		sampler := metrics.NewSampler(collectors)
		sampler.Sample(provider.Instance.IOQ, provider.Instance.Cache)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go http.ListenAndServe(addr, mux) //nolint:errcheck
	}

	ctx := context.Background()
	in := make([]byte, wire.ReqSizeMin)
	out := make([]byte, wire.ReqSizeMin)

	// Drive the INIT handshake and then as many further exchanges as the
	// loopback host has canned, feeding each emitted request straight back
	// as its own "reply" via the fake daemon underneath loopbackHost.
	var reply []byte
	for i := 0; i < 64; i++ {
		n, st := provider.DeviceTransact(ctx, reply, out)
		if !st.Ok() {
			fmt.Printf("transact: status=%s\n", st)
		}
		if n == 0 {
			if host.exhausted() {
				break
			}
			reply = nil
			continue
		}
		reply = host.fakeDaemonRoundTrip(out[:n], in)
	}

	fmt.Printf("loopback smoke test complete: %d requests served\n", host.served)
	return nil
}
