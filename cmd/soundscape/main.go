// Command soundscape plays a scene from a YAML scene set until
// interrupted, printing analysis snapshots as it goes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lowfreq/soundscape/audio"
	"github.com/lowfreq/soundscape/core"
)

func main() {
	scenesPath := flag.String("scenes", "scenes.yaml", "scene set definition file")
	scene := flag.String("scene", "", "scene to play (default: first registered)")
	volume := flag.Float64("volume", 0.8, "master volume 0..1")
	meter := flag.Bool("meter", false, "print analysis snapshots")
	flag.Parse()

	scenes, err := audio.LoadScenes(*scenesPath)
	if err != nil {
		log.Fatalf("load scenes: %v", err)
	}
	if len(scenes) == 0 {
		log.Fatal("scene set is empty")
	}

	engine := audio.New()
	engine.AddScenes(scenes)
	defer engine.Destroy()

	if err := engine.Init(); err != nil {
		log.Fatalf("init: %v", err)
	}
	engine.SetVolume(*volume, 0)

	target := core.Scene(*scene)
	if target == "" {
		target = engine.AvailableScenes()[0]
	}
	if err := engine.Play(target); err != nil {
		log.Fatalf("play %s: %v", target, err)
	}
	log.Printf("playing %s, ctrl-c to stop", target)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			fade := 2 * time.Second
			engine.Stop(fade)
			// Let the fade finish before the device closes
			time.Sleep(fade + 100*time.Millisecond)
			return
		case <-ticker.C:
			if *meter {
				d := engine.AudioData()
				fmt.Printf("\rlow %.2f  mid %.2f  high %.2f  vol %.2f   ",
					d.Low, d.Mid, d.High, d.Volume)
			}
		}
	}
}
