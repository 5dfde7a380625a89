package core

import (
	"fmt"
	"strings"
	"testing"
)

func percentEncodeBytes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteString(fmt.Sprintf("%%%02X", s[i]))
	}
	return b.String()
}

func TestXorDecryptRoundtrip(t *testing.T) {
	plain := "hello^world"
	key := "ab"
	if got := xorDecrypt(xorDecrypt(plain, key), key); got != plain {
		t.Errorf("roundtrip = %q, want %q", got, plain)
	}
}

func TestDeobfuscateScript(t *testing.T) {
	words := "hello^world"
	key := "ab"
	table := percentEncodeBytes(xorDecrypt(words, key))

	script := fmt.Sprintf(
		`var t=decodeURI("%s");var k=function(){}}}("%s")};var a=_0x1f(0);var b=_0x1f(1);`,
		table, key)

	substituted, err := deobfuscateScript(script)
	if err != nil {
		t.Fatalf("deobfuscateScript failed: %v", err)
	}
	if !strings.Contains(substituted, "var a='hello'") {
		t.Errorf("lookup 0 not substituted: %s", substituted)
	}
	if !strings.Contains(substituted, "var b='world'") {
		t.Errorf("lookup 1 not substituted: %s", substituted)
	}
}

func TestDeobfuscateScriptMissingTable(t *testing.T) {
	if _, err := deobfuscateScript("nothing useful here"); err == nil {
		t.Fatal("expected error for script without a word table")
	}
}

func TestEvalAboLiteral(t *testing.T) {
	abo, err := evalAboLiteral(`{'k1':'v1',"k2":2}`)
	if err != nil {
		t.Fatalf("evalAboLiteral failed: %v", err)
	}
	if abo["k1"] != "v1" || abo["k2"] != "2" {
		t.Errorf("abo = %v", abo)
	}

	if _, err := evalAboLiteral("not an object {{{"); err == nil {
		t.Fatal("expected error for broken literal")
	}
}

func TestScriptVersion(t *testing.T) {
	if got := scriptVersion("/static/js/1.8.4"); got != "1.8.4" {
		t.Errorf("scriptVersion = %q, want 1.8.4", got)
	}
	if got := scriptVersion("short"); got != "short" {
		t.Errorf("scriptVersion fallback = %q", got)
	}
}

func TestConstantsExtractionPatterns(t *testing.T) {
	substituted := `x['_lib']={'aa':'11','bb':'22'},y;` +
		`z['_abo']=function(){return '{"(n[0:3])":"n[4:7]"}'}();` +
		`w['options']['deviceId']='dev123';`

	aboMatch := aboPattern.FindStringSubmatch(substituted)
	if aboMatch == nil {
		t.Fatal("abo table not matched")
	}
	abo, err := evalAboLiteral(aboMatch[1])
	if err != nil {
		t.Fatal(err)
	}
	if abo["aa"] != "11" {
		t.Errorf("abo = %v", abo)
	}

	mappingMatch := mappingPtn.FindStringSubmatch(substituted)
	if mappingMatch == nil {
		t.Fatal("mapping not matched")
	}
	if _, err := NewLotParser(mappingMatch[1]); err != nil {
		t.Errorf("extracted mapping rejected by the parser: %v", err)
	}

	deviceMatch := deviceIDPattern.FindStringSubmatch(substituted)
	if deviceMatch == nil || deviceMatch[1] != "dev123" {
		t.Errorf("device id not matched: %v", deviceMatch)
	}
}
