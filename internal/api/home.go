package api

import _ "embed"

//go:embed home.html
var homePage []byte
