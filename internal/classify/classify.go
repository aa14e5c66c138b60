/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package classify buckets issues into delivery categories from their label
// text and issue type. The patterns are team-convention heuristics carried
// over from the labels in use (hyphen/underscore/space-insensitive, with
// project-prefix-qualified variants); precedence is strict and first match
// wins, so an issue tagged both "bug" and "feature" is a Bug.
package classify

import (
    "regexp"
    "strings"
)

type Category string

const (
    CategoryUnplanned Category = "Não planejada"
    CategoryBugGLPI   Category = "Bug GLPI"
    CategoryBug       Category = "Bug"
    CategoryFeature   Category = "Feature"
    CategoryOther     Category = "Outros"
)

// Categories in precedence order. Also the chart legend order.
var Categories = []Category{CategoryUnplanned, CategoryBugGLPI, CategoryBug, CategoryFeature, CategoryOther}

const sep = `[,\s\-_]`

var (
    reUnplanned   = regexp.MustCompile(`(nao|não)[\s\-_]*planejada`)
    reBugGLPI     = regexp.MustCompile(`bug[\s\-_]*glpi|glpi[\s\-_]*bug`)
    reBareBug     = regexp.MustCompile(`(^|` + sep + `)bug(` + sep + `|$)`)
    reBareFeature = regexp.MustCompile(`(^|` + sep + `)feature(` + sep + `|$)`)
)

// Classifier holds the prefix-qualified patterns compiled for one project.
type Classifier struct {
    prefix          string
    rePfxUnplanned  *regexp.Regexp
    rePfxBugGLPI    *regexp.Regexp
    rePfxBug        *regexp.Regexp
    rePfxFeature    *regexp.Regexp
}

// New compiles a classifier for a project identifier prefix (e.g. "app" for
// labels like "APP-bug"). An empty prefix disables the qualified variants.
func New(projectPrefix string) *Classifier {
    c := &Classifier{prefix: strings.ToLower(strings.TrimSpace(projectPrefix))}
    if c.prefix == "" { return c }
    p := regexp.QuoteMeta(c.prefix)
    c.rePfxUnplanned = regexp.MustCompile(`(^|` + sep + `)` + p + `[-_]*(nao|não)[- _]*planejada(` + sep + `|$)`)
    c.rePfxBugGLPI = regexp.MustCompile(`(^|` + sep + `)` + p + `[-_]*(bug[-_]*glpi|glpi[-_]*bug)(` + sep + `|$)`)
    c.rePfxBug = regexp.MustCompile(`(^|` + sep + `)` + p + `[-_]*bug(` + sep + `|$)`)
    c.rePfxFeature = regexp.MustCompile(`(^|` + sep + `)` + p + `[-_]*feature(` + sep + `|$)`)
    return c
}

// Classify categorizes one issue. labels is the comma-joined label-name
// text; typeName is the issue type. Both are matched case-insensitively.
func (c *Classifier) Classify(labels, typeName string) Category {
    l := strings.ToLower(labels)
    t := strings.ToLower(strings.TrimSpace(typeName))

    switch {
    case c.matchUnplanned(l):
        return CategoryUnplanned
    case c.matchBugGLPI(l):
        return CategoryBugGLPI
    case c.matchPrefixed(c.rePfxBug, l) || reBareBug.MatchString(l) || t == "bug":
        return CategoryBug
    case c.matchPrefixed(c.rePfxFeature, l) || reBareFeature.MatchString(l) || t == "feature":
        return CategoryFeature
    default:
        return CategoryOther
    }
}

func (c *Classifier) matchPrefixed(re *regexp.Regexp, l string) bool {
    return re != nil && re.MatchString(l)
}

func (c *Classifier) matchUnplanned(l string) bool {
    if c.matchPrefixed(c.rePfxUnplanned, l) { return true }
    if c.prefix != "" && containsAfter(l, c.prefix, "unplanned") { return true }
    return reUnplanned.MatchString(l) || strings.Contains(l, "unplanned")
}

func (c *Classifier) matchBugGLPI(l string) bool {
    if c.matchPrefixed(c.rePfxBugGLPI, l) { return true }
    if c.prefix != "" && containsAfter(l, c.prefix, "bugglpi") { return true }
    return strings.Contains(l, "bugglpi") || reBugGLPI.MatchString(l)
}

// containsAfter reports whether needle occurs somewhere after prefix, the
// equivalent of ILIKE '%prefix%needle%'.
func containsAfter(s, prefix, needle string) bool {
    i := strings.Index(s, prefix)
    if i < 0 { return false }
    return strings.Contains(s[i+len(prefix):], needle)
}
