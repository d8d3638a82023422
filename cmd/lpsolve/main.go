//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"crypto/ecdsa"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/markkurossi/mpc/circuit"
	"github.com/markkurossi/mpc/ot"
	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpclp/crypto/field"
	"github.com/markkurossi/mpclp/crypto/spdz"
	"github.com/markkurossi/mpclp/crypto/tss"
	"github.com/markkurossi/mpclp/lp"
	"github.com/markkurossi/mpclp/lp/problem"
	"github.com/markkurossi/tabulate"
	"github.com/markkurossi/text/superscript"
)

var (
	mpcPort = ":9000"
)

type config struct {
	pattern   string
	problemID string
	rule      lp.PivotRule
	pre       string
	maxIter   int
	unbounded bool
	bits      int
	attest    string
	verbose   bool
	timing    bool
}

type result struct {
	id         int
	problemID  string
	value      *big.Rat
	iterations int
	stats      spdz.Stats
	io         p2p.IOStats
	timing     *circuit.Timing
	pub        *ecdsa.PublicKey
	digest     []byte
	signature  []byte
}

func main() {
	evaluator := flag.Bool("e", false, "evaluator / garbler mode")
	fAddr := flag.String("addr", mpcPort, "evaluator address")
	fPattern := flag.String("pattern", "", "problem pattern `file`")
	fID := flag.String("id", "", "problem ID for attestation")
	fRule := flag.String("rule", "danzig", "pivot rule: danzig or bland")
	fPre := flag.String("pre", "dealer", "preprocessing: dealer or ot")
	fMaxIter := flag.Int("max-iterations", 0,
		"maximum number of iterations (0 for unlimited)")
	fUnbounded := flag.Bool("detect-unbounded", false,
		"reveal per iteration whether an exiting row exists")
	fBits := flag.Int("bits", 64, "bit length of compared values")
	fPipe := flag.Bool("pipe", false, "run both peers in this process")
	fAttest := flag.String("attest", "",
		"sign the result with the threshold key shares in `dir`")
	fTiming := flag.Bool("timing", false, "print timing report")
	fVerbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	log.SetFlags(0)

	if len(*fPattern) == 0 {
		log.Fatalf("no pattern file specified")
	}
	rule, err := lp.ParsePivotRule(*fRule)
	if err != nil {
		log.Fatal(err)
	}
	switch *fPre {
	case "dealer", "ot":
	default:
		log.Fatalf("invalid preprocessing: %v", *fPre)
	}
	cfg := &config{
		pattern:   *fPattern,
		problemID: *fID,
		rule:      rule,
		pre:       *fPre,
		maxIter:   *fMaxIter,
		unbounded: *fUnbounded,
		bits:      *fBits,
		attest:    *fAttest,
		verbose:   *fVerbose,
		timing:    *fTiming,
	}
	if len(cfg.problemID) == 0 {
		cfg.problemID = strings.TrimSuffix(filepath.Base(cfg.pattern),
			filepath.Ext(cfg.pattern))
	}

	if *fPipe {
		if len(flag.Args()) != 2 {
			log.Fatalf("usage: lpsolve -pipe -pattern FILE VALUES1 VALUES2")
		}
		results, err := runPipe(cfg, flag.Args())
		if err != nil {
			log.Fatal(err)
		}
		printResult(results[0])
		if cfg.timing {
			results[0].timing.Print(results[0].io)
		}
		printStats(results)
		return
	}

	if len(flag.Args()) != 1 {
		log.Fatalf("usage: lpsolve [-e] -pattern FILE VALUES")
	}
	var id int
	mode := "Garbler"
	if *evaluator {
		id = 1
		mode = "Evaluator"
	}
	fmt.Printf("LP %v Node\n", mode)

	conn, err := connect(*evaluator, *fAddr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	res, err := solve(conn, id, flag.Args()[0], cfg)
	if err != nil {
		log.Fatal(err)
	}
	printResult(res)
	if cfg.timing {
		res.timing.Print(res.io)
	}
	printStats([]*result{res})
}

func connect(evaluator bool, addr string) (*p2p.Conn, error) {
	if evaluator {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		defer listener.Close()
		log.Printf("Listening for garbler at %s", addr)

		conn, err := listener.Accept()
		if err != nil {
			return nil, err
		}
		log.Printf("New connection from %s", conn.RemoteAddr())
		return p2p.NewConn(conn), nil
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return p2p.NewConn(conn), nil
}

func runPipe(cfg *config, values []string) ([]*result, error) {
	c0, c1 := p2p.Pipe()
	conns := []*p2p.Conn{c0, c1}

	results := make([]*result, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for id := 0; id < 2; id++ {
		wg.Go(func() {
			results[id], errs[id] = solve(conns[id], id, values[id], cfg)
		})
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

func newPreprocessor(conn *p2p.Conn, id int, cfg *config) (
	spdz.Preprocessor, error) {

	if cfg.pre == "ot" {
		return spdz.NewOTPreprocessor(conn, id, func() ot.OT {
			return ot.NewCO()
		})
	}
	return spdz.NewDealer(conn, id)
}

func solve(conn *p2p.Conn, id int, valuesFile string, cfg *config) (
	*result, error) {

	res := &result{
		id:        id,
		problemID: cfg.problemID,
		io:        conn.Stats,
		timing:    circuit.NewTiming(),
	}
	prob, err := problem.Read(valuesFile, cfg.pattern, id)
	if err != nil {
		return nil, err
	}
	pre, err := newPreprocessor(conn, id, cfg)
	if err != nil {
		return nil, err
	}
	params := spdz.NewParams()
	params.BitLength = cfg.bits
	params.Verbose = cfg.verbose

	peer, err := spdz.NewPeer(conn, id, pre, params)
	if err != nil {
		return nil, err
	}
	res.timing.Sample("Init", []string{xfer(conn)})

	solver, err := prob.NewSolver(peer, cfg.rule)
	if err != nil {
		return nil, err
	}
	solver.Params.MaxIterations = cfg.maxIter
	solver.Params.DetectUnbounded = cfg.unbounded
	solver.Params.BitLength = cfg.bits
	solver.Params.Verbose = cfg.verbose
	res.timing.Sample("Input", []string{xfer(conn)})

	out, err := solver.Run()
	if err != nil {
		return nil, err
	}
	res.iterations = out.Iterations
	res.timing.Sample("Solve", []string{xfer(conn)})

	value, err := lp.OptimalValue(peer, out.Update, out.Tableau, out.Pivot)
	if err != nil {
		return nil, err
	}
	revealed, err := peer.Reveal([]*spdz.Share{value, out.Pivot})
	if err != nil {
		return nil, err
	}
	pivot := field.Signed(revealed[1])
	numerator := field.Signed(field.Mul(revealed[0], revealed[1]))
	res.value = new(big.Rat).SetFrac(numerator, pivot)
	res.stats = peer.Stats
	res.timing.Sample("Result", []string{xfer(conn)})

	if len(cfg.attest) > 0 {
		err = attest(conn, id, cfg, res, revealed[0])
		if err != nil {
			return nil, err
		}
		res.timing.Sample("Attest", []string{xfer(conn)})
	}

	return res, nil
}

func attest(conn *p2p.Conn, id int, cfg *config, res *result,
	value *big.Int) error {

	peer, err := tss.NewPeer(conn, id)
	if err != nil {
		return err
	}
	peer.Verbose = cfg.verbose

	// Both peers must agree whether to run the keygen.
	file := filepath.Join(cfg.attest, fmt.Sprintf("peer-%d.share", id))
	_, statErr := os.Stat(file)
	var have int
	if statErr == nil {
		have = 1
	}
	if err := conn.SendUint32(have); err != nil {
		return err
	}
	if err := conn.Flush(); err != nil {
		return err
	}
	peerHave, err := conn.ReceiveUint32()
	if err != nil {
		return err
	}
	if have != peerHave {
		return fmt.Errorf("key share file %v: mismatch with peer", file)
	}

	if have == 0 {
		save, err := peer.Keygen()
		if err != nil {
			return err
		}
		if err := tss.WriteSaveData(file, save); err != nil {
			return err
		}
	}
	key, err := tss.ReadSaveData(file)
	if err != nil {
		return err
	}
	digest, signature, err := peer.Sign(key,
		tss.ResultDigest(cfg.problemID, res.iterations, value))
	if err != nil {
		return err
	}
	res.pub = tss.PublicKey(key)
	if !tss.Verify(res.pub, digest, signature) {
		return fmt.Errorf("threshold signature verification failed")
	}
	res.digest = digest
	res.signature = signature

	return nil
}

func xfer(conn *p2p.Conn) string {
	return circuit.FileSize(conn.Stats.Sum()).String()
}

func partyName(id int) string {
	return "P" + superscript.Itoa(id)
}

func printResult(res *result) {
	fmt.Printf("Optimal value: %v", res.value.RatString())
	if !res.value.IsInt() {
		fmt.Printf(" (%v)", res.value.FloatString(6))
	}
	fmt.Println()
	fmt.Printf("Iterations   : %v\n", res.iterations)
	fmt.Printf("Problem ID   : %v\n", res.problemID)

	if res.pub != nil {
		keyBytes, err := res.pub.Bytes()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Public key   : %x\n", keyBytes)
		fmt.Printf("Digest       : %x\n", res.digest)
		fmt.Printf("Signature    : %x\n", res.signature)
	}
}

func printStats(results []*result) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Stat").SetAlign(tabulate.ML)
	for _, res := range results {
		tab.Header(partyName(res.id)).SetAlign(tabulate.MR)
	}

	rows := []struct {
		label string
		value func(res *result) string
	}{
		{"Mults", func(res *result) string {
			return fmt.Sprintf("%v", res.stats.Mults)
		}},
		{"Opens", func(res *result) string {
			return fmt.Sprintf("%v", res.stats.Opens)
		}},
		{"Rounds", func(res *result) string {
			return fmt.Sprintf("%v", res.stats.Rounds)
		}},
		{"Triples", func(res *result) string {
			return fmt.Sprintf("%v", res.stats.Triples)
		}},
		{"Bits", func(res *result) string {
			return fmt.Sprintf("%v", res.stats.Bits)
		}},
		{"Checks", func(res *result) string {
			return fmt.Sprintf("%v", res.stats.Checks)
		}},
		{"Sent", func(res *result) string {
			return circuit.FileSize(res.io.Sent.Load()).String()
		}},
		{"Rcvd", func(res *result) string {
			return circuit.FileSize(res.io.Recvd.Load()).String()
		}},
		{"Flcd", func(res *result) string {
			return fmt.Sprintf("%v", res.io.Flushed.Load())
		}},
	}
	for _, r := range rows {
		row := tab.Row()
		row.Column(r.label)
		for _, res := range results {
			row.Column(r.value(res))
		}
	}
	tab.Print(os.Stdout)
}
