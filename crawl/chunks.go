package crawl

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/bulgusearch/bulgu"
)

// builtinReservedBlocks are never scanned regardless of configuration:
// private, loopback, link-local, multicast and otherwise special-purpose
// IPv4 space.
var builtinReservedBlocks = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.2.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"224.0.0.0/4",
	"240.0.0.0/4",
}

// Chunk is one cube of IPv4 space: a half-open range per octet.
type Chunk struct {
	AFrom, ATo int
	BFrom, BTo int
	CFrom, CTo int
	DFrom, DTo int
}

// Canonical returns the chunk's low-corner IP, the address the reserved
// check is run against.
func (c Chunk) Canonical() string {
	return fmt.Sprintf("%d.%d.%d.%d", c.AFrom, c.BFrom, c.CFrom, c.DFrom)
}

// Size returns the number of addresses in the chunk.
func (c Chunk) Size() int {
	return (c.ATo - c.AFrom) * (c.BTo - c.BFrom) * (c.CTo - c.CFrom) * (c.DTo - c.DFrom)
}

// Each calls fn for every IP in the chunk, stopping early when fn returns
// false.
func (c Chunk) Each(fn func(ip string) bool) {
	for a := c.AFrom; a < c.ATo; a++ {
		for b := c.BFrom; b < c.BTo; b++ {
			for cc := c.CFrom; cc < c.CTo; cc++ {
				for d := c.DFrom; d < c.DTo; d++ {
					if !fn(fmt.Sprintf("%d.%d.%d.%d", a, b, cc, d)) {
						return
					}
				}
			}
		}
	}
}

// ChunkGenerator enumerates this machine's share of the IPv4 space. The
// reserved-block decision per chunk is cached on disk between runs because
// the full enumeration re-checks the same canonical IPs every start.
type ChunkGenerator struct {
	chunkSize     int
	machineID     int
	totalMachines int
	shuffle       bool
	cachePath     string
	reserved      []netip.Prefix
}

// NewChunkGenerator builds a generator from validated configuration.
func NewChunkGenerator(crawler bulgu.CrawlerConfig, system bulgu.SystemConfig, cachePath string) (*ChunkGenerator, error) {
	blocks := append([]string{}, builtinReservedBlocks...)
	blocks = append(blocks, crawler.ReservedBlocks...)

	reserved := make([]netip.Prefix, 0, len(blocks))
	for _, block := range blocks {
		prefix, err := netip.ParsePrefix(block)
		if err != nil {
			return nil, bulgu.Errorf(bulgu.EINVALID, "invalid reserved block %q: %v", block, err)
		}
		reserved = append(reserved, prefix)
	}

	return &ChunkGenerator{
		chunkSize:     crawler.ChunkSize,
		machineID:     system.MachineID,
		totalMachines: system.TotalMachines,
		shuffle:       crawler.ShuffleChunks,
		cachePath:     cachePath,
		reserved:      reserved,
	}, nil
}

// Generate returns the chunks assigned to this machine: the full enumeration
// minus reserved space, filtered to chunk_index mod total_machines ==
// machine_id, optionally shuffled.
func (g *ChunkGenerator) Generate() []Chunk {
	cache := g.loadCache()
	dirty := false

	var chunks []Chunk
	index := 0
	step := g.chunkSize
	for a := 0; a < 256; a += step {
		for b := 0; b < 256; b += step {
			for c := 0; c < 256; c += step {
				for d := 0; d < 256; d += step {
					chunk := Chunk{
						AFrom: a, ATo: a + step,
						BFrom: b, BTo: b + step,
						CFrom: c, CTo: c + step,
						DFrom: d, DTo: d + step,
					}
					idx := index
					index++

					canonical := chunk.Canonical()
					isReserved, cached := cache[canonical]
					if !cached {
						isReserved = g.isReserved(canonical)
						cache[canonical] = isReserved
						dirty = true
					}
					if isReserved {
						continue
					}
					if idx%g.totalMachines != g.machineID {
						continue
					}
					chunks = append(chunks, chunk)
				}
			}
		}
	}

	if dirty {
		g.saveCache(cache)
	}

	if g.shuffle {
		rand.Shuffle(len(chunks), func(i, j int) {
			chunks[i], chunks[j] = chunks[j], chunks[i]
		})
	}
	return chunks
}

func (g *ChunkGenerator) isReserved(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}
	for _, prefix := range g.reserved {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// loadCache reads the reserved-decision cache; a missing or corrupt file
// yields an empty cache.
func (g *ChunkGenerator) loadCache() map[string]bool {
	cache := make(map[string]bool)
	if g.cachePath == "" {
		return cache
	}
	raw, err := os.ReadFile(g.cachePath)
	if err != nil {
		return cache
	}
	if err := json.Unmarshal(raw, &cache); err != nil {
		return make(map[string]bool)
	}
	return cache
}

// saveCache writes the reserved-decision cache. Failures are ignored; the
// cache is an optimization, not state.
func (g *ChunkGenerator) saveCache(cache map[string]bool) {
	if g.cachePath == "" {
		return
	}
	raw, err := json.Marshal(cache)
	if err != nil {
		return
	}
	if dir := filepath.Dir(g.cachePath); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	_ = os.WriteFile(g.cachePath, raw, 0o644)
}
