// Command g2dbench renders a scripted scene with g2d and reports draw call
// and frame time statistics.
//
// Usage:
//
//	g2dbench [-scenario file.yaml] [-frames n] [-noop] [-png out.png] [-v]
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/schollz/progressbar/v3"

	"github.com/gogpu/g2d"
)

func main() {
	var (
		scenario = flag.String("scenario", "", "YAML scenario file (built-in scenario when empty)")
		frames   = flag.Int("frames", 0, "override the scenario frame count")
		useNoop  = flag.Bool("noop", false, "render on the noop backend instead of a GPU")
		output   = flag.String("png", "", "write the last frame to this PNG file")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		g2d.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	s, err := LoadScenario(*scenario)
	if err != nil {
		log.Fatal(err)
	}
	if *frames > 0 {
		s.Frames = *frames
	}
	if err := run(s, *useNoop, *output); err != nil {
		log.Fatal(err)
	}
}

func run(s *Scenario, useNoop bool, output string) error {
	opts := []g2d.Option{g2d.WithSize(s.Width, s.Height)}
	if useNoop {
		dev, err := openNoop()
		if err != nil {
			return err
		}
		defer dev.close()
		opts = append(opts, g2d.WithDevice(dev.device, dev.queue))
	}
	c, err := g2d.New(opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	b, err := newBench(c, s)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(s.Frames), s.Name)
	var total g2d.FrameStats
	for range s.Frames {
		st, err := b.step()
		if err != nil {
			return fmt.Errorf("frame %d: %w", b.frame, err)
		}
		total.DrawCalls += st.DrawCalls
		total.Dropped += st.Dropped
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	last := c.LastFrame()
	lo, avg, hi := c.Timer().Summary()
	fmt.Printf("%s: %d frames, last frame %s\n", s.Name, s.Frames, last)
	fmt.Printf("frame time min=%v avg=%v max=%v (%.1f fps), %d draw calls, %d dropped\n",
		lo, avg, hi, c.Timer().FPS(), total.DrawCalls, total.Dropped)

	if output != "" {
		return writePNG(c, output)
	}
	return nil
}

func writePNG(c *g2d.Canvas, path string) error {
	img, err := c.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// noopDevice is a device on the noop backend, which records commands
// without executing them.
type noopDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
}

func openNoop() (*noopDevice, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("noop: no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("noop device: %w", err)
	}
	return &noopDevice{instance: instance, device: openDev.Device, queue: openDev.Queue}, nil
}

func (d *noopDevice) close() {
	d.device.Destroy()
	d.instance.Destroy()
}
