package conf

import (
	"flag"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParse(t *testing.T) {
	type dummy struct {
		FromDefault  string
		FromCLI      string
		FromConf     string
		FromEnv      string
		PriorityCLI  string
		PriorityEnv  string
		PriorityConf string
		QuotedConf   string

		NakedBool       bool
		NormalBool      bool
		NormalFalseBool bool
		QuotedBool      bool
	}

	got := dummy{
		NormalFalseBool: true,
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.StringVar(&got.FromDefault, "from-default", "value-default", "value taken from default")
	fs.StringVar(&got.FromCLI, "from-cli", "value-default", "value taken from CLI")
	fs.StringVar(&got.FromConf, "from-conf", "value-default", "value taken from conf")
	fs.StringVar(&got.FromEnv, "from.env", "value-default", "value taken from env")
	fs.StringVar(&got.PriorityCLI, "priority-cli", "value-default", "value taken from CLI over others")
	fs.StringVar(&got.PriorityEnv, "priority-env", "value-default", "value taken from env over conf")
	fs.StringVar(&got.PriorityConf, "priority-conf", "value-default", "value taken from conf over default")
	fs.StringVar(&got.QuotedConf, "quoted-conf", "value-default", "value taken from conf and unquoted")
	fs.BoolVar(&got.NakedBool, "naked-bool", false, "value taken from a naked flag in conf")
	fs.BoolVar(&got.NormalBool, "normal-bool", false, "value taken from conf")
	fs.BoolVar(&got.NormalFalseBool, "normal-false-bool", true, "value taken from conf")
	fs.BoolVar(&got.QuotedBool, "quoted-bool", false, "value taken from conf and unquoted")
	fs.String("c", "./testdata/test.conf", "configuration file path")

	args := []string{
		"-from-cli", "value-cli",
		"-priority-cli", "value-cli",
	}

	env := map[string]string{
		"TEST_FROM_ENV":     "value-env",
		"TEST_PRIORITY_ENV": "value-env",
		"TEST_PRIORITY_CLI": "value-env",
	}

	err := parse(fs, args, "c", "TEST", lookupMap(env))
	if err != nil {
		t.Errorf(`unexpected error: got %#v`, err)
	}

	expected := dummy{
		FromDefault:     "value-default",
		FromCLI:         "value-cli",
		FromConf:        "value-conf",
		FromEnv:         "value-env",
		PriorityCLI:     "value-cli",
		PriorityEnv:     "value-env",
		PriorityConf:    "value-conf",
		QuotedConf:      "value-conf",
		NakedBool:       true,
		NormalBool:      true,
		NormalFalseBool: false,
		QuotedBool:      true,
	}

	if !cmp.Equal(expected, got) {
		t.Errorf(`Parse(): unexpected result`)
		t.Log(cmp.Diff(expected, got))
	}
}

func TestParse_Errors(t *testing.T) {
	type testcase struct {
		args []string
		conf string
		env  map[string]string
	}

	for n, c := range map[string]testcase{
		"missing conf flag": {
			conf: "nope",
		},
		"missing explicit conf file": {
			args: []string{"-c", "./testdata/missing.conf"},
			conf: "c",
		},
		"invalid env value": {
			env: map[string]string{"TEST_NUMBER": "NaN"},
		},
		"unknown flag": {
			args: []string{"-unknown"},
		},
	} {
		t.Run(n, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.SetOutput(new(discard))
			fs.Int("number", 0, "a number")
			fs.String("c", "./testdata/missing.conf", "configuration file path")

			err := parse(fs, c.args, c.conf, "TEST", lookupMap(c.env))
			if err == nil {
				t.Errorf(`parse(%q): wanted an error`, c.args)
			}
		})
	}
}

func TestParse_Skip(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	version := fs.Bool("version", false, "print the version")
	level := fs.String("log.level", "info", "log level")

	env := map[string]string{
		"TEST_VERSION":   "true",
		"TEST_LOG_LEVEL": "debug",
	}

	err := parse(fs, nil, "", "TEST", lookupMap(env), "version")
	if err != nil {
		t.Fatalf(`parse(): unexpected error %s`, err)
	}

	if *version {
		t.Errorf(`parse(): skipped flag "version" was read from the environment`)
	}
	if *level != "debug" {
		t.Errorf(`parse(): wanted log.level %q, got %q`, "debug", *level)
	}
}

func TestParse_MissingDefaultConf(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("c", "./testdata/missing.conf", "configuration file path")

	err := parse(fs, nil, "c", "", nil)
	if err != nil {
		t.Errorf(`parse(): unexpected error %s`, err)
	}
}

func TestEnvName(t *testing.T) {
	for in, want := range map[string]string{
		"format":    "APPLEDUMP_FORMAT",
		"log.level": "APPLEDUMP_LOG_LEVEL",
		"max-bytes": "APPLEDUMP_MAX_BYTES",
	} {
		if got := EnvName("appledump", in); got != want {
			t.Errorf(`EnvName(%q): wanted %q, got %q`, in, want, got)
		}
	}
}

func TestMapFlag(t *testing.T) {
	type dummy struct {
		m map[string]string
	}

	got := dummy{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := MapFlag(&got.m)
	fs.Var(f, "m", "map value")

	args := []string{
		"-m", "key-1=value-1",
		"-m", "key-2=value-2",
		"-m", "key-3=value-3;key-4=value-4",
		"-m", "key-5;",
	}

	if err := fs.Parse(args); err != nil {
		t.Fatalf(`unexpected error: %s`, err)
	}

	expected := map[string]string{
		"key-1": "value-1",
		"key-2": "value-2",
		"key-3": "value-3",
		"key-4": "value-4",
		"key-5": "",
	}

	if !cmp.Equal(expected, got.m) {
		t.Errorf(`MapFlag: unexpected result`)
		t.Log(cmp.Diff(expected, got.m))
	}

	want := "key-1=value-1;key-2=value-2;key-3=value-3;key-4=value-4;key-5="
	if f.String() != want {
		t.Errorf(`mapFlag.String(): wanted %q, got %q`, want, f.String())
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
