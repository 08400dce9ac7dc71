package powershell

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
)

// tempFileName returns a unique path in the system temp directory. The
// files cross a privilege boundary, so predictable names are avoided.
func tempFileName(suffix string) string {
	return filepath.Join(os.TempDir(), "touchctl-"+uuid.NewString()+suffix)
}

// encodeUTF16LE encodes s as UTF-16 little-endian without a byte-order
// mark. PowerShell's "unicode" encoding reads exactly this; adding a BOM
// here breaks Get-Content -Raw round-trips.
func encodeUTF16LE(s string) []byte {
	codes := utf16.Encode([]rune(s))
	buf := make([]byte, 2*len(codes))
	for i, c := range codes {
		binary.LittleEndian.PutUint16(buf[2*i:], c)
	}
	return buf
}

// elevatedWrapper builds the outer PowerShell command that relaunches the
// staged script elevated and captures its streams into the exchange files.
//
// The wrapper sets ErrorActionPreference to Stop so that a cancelled UAC
// prompt (and any other failure of the elevation machinery) surfaces as
// output on the wrapper's own streams instead of being ignored. The inner
// shell redirects every stream of the staged script into the capture
// files, then writes the exit code and strips the redirection-added
// trailing newline while converting each capture file to BOM-less UTF-8.
func elevatedWrapper(f *captureFiles, propagate bool) string {
	var b strings.Builder

	b.WriteString("try { $ErrorView = 'ConciseView'; $ErrorActionPreference = 'Stop'; " +
		"$PSDefaultParameterValues['*:ErrorAction'] = 'Stop'; " +
		"$PSDefaultParameterValues['*:Encoding'] = 'unicode'; " +
		"$PSDefaultParameterValues['Disabled'] = $false } catch {}; ")

	b.WriteString("$script = '" + SafePath(f.script) + "'; ")
	b.WriteString("$content = Get-Content -Raw -LiteralPath $script; ")
	b.WriteString("$content = 'try { $PSDefaultParameterValues[''*:Encoding''] = ''unicode''; " +
		"$PSDefaultParameterValues[''Disabled''] = $false } catch {}' + \"`n\" + $content + \"`n\"; ")
	b.WriteString("Set-Content -LiteralPath $script -Value $content -Force | Out-Null; ")

	b.WriteString("$stdout = '" + SafePath(f.stdout) + "'; ")
	b.WriteString("$stderr = '" + SafePath(f.stderr) + "'; ")
	b.WriteString("$retcode = '" + SafePath(f.retcode) + "'; ")

	if propagate {
		b.WriteString("$arg = @('-NoProfile','-ExecutionPolicy','Bypass','-Command'," +
			"\"try { &$script 6>&1 5>&1 4>&1 3>&1 >$stdout 2>$stderr; `$exitcode = `$lastexitcode; " +
			"if (`$exitcode) { exit `$exitcode } else { exit 0 } } " +
			"catch { (`$_ | Out-String) >>$stderr; exit 1 }\"); ")
	} else {
		b.WriteString("$arg = @('-NoProfile','-ExecutionPolicy','Bypass','-Command'," +
			"\"try { &$script 6>&1 5>&1 4>&1 3>&1 >$stdout 2>$stderr } " +
			"catch { (`$_ | Out-String) >>$stderr; exit 1 }\"); ")
	}

	b.WriteString("$p = Start-Process powershell -PassThru -Wait -Verb RunAs -WindowStyle Hidden -ArgumentList $arg; ")
	b.WriteString("$p.ExitCode >$retcode; ")

	// `>` has no -NoNewline equivalent; this helper removes the trailing
	// newline it adds and rewrites the file as BOM-less UTF-8.
	b.WriteString("function Convert-Utf8NoBom { param([Parameter(Mandatory, ValueFromPipeline)][string]$Path) " +
		"process { $content = Get-Content -Raw -LiteralPath $Path; " +
		"if ($content -eq $null) { $content = '' }; " +
		"$content = $content -Replace \"(\\r?\\n)$\", \"\"; " +
		"New-Item -Path $Path -Force -Value $content; $Path } }; ")

	b.WriteString("foreach ($path in @($stdout, $stderr, $retcode)) { $path | Convert-Utf8NoBom | Out-Null }")

	return b.String()
}
