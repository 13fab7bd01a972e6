// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package server

const pageTemplates = `
{{define "head"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.}}</title>
    <style>
        body {
            font-family: "Ubuntu", -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #b24202 0%, #e5790d 100%);
        }
        .card {
            background: white;
            padding: 2.5rem;
            border-radius: 10px;
            box-shadow: 0 10px 40px rgba(0,0,0,0.5);
            width: 380px;
        }
        h1 { color: #333; margin: 0 0 1rem 0; font-size: 1.5rem; }
        label { display: block; margin-top: 0.75rem; color: #555; font-size: 0.9em; }
        input { width: 100%; padding: 0.5rem; box-sizing: border-box; }
        button, .button {
            display: block;
            width: 100%;
            margin-top: 1rem;
            padding: 0.6rem;
            text-align: center;
            background: #b24202;
            color: white;
            border: 0;
            border-radius: 5px;
            text-decoration: none;
            cursor: pointer;
        }
        .status { margin-top: 1rem; color: #2e7d32; }
        .status.error { color: #c62828; }
        .hidden { display: none; }
    </style>
</head>
<body>{{end}}

{{define "card"}}
{{if eq .Card.String "setup"}}
        <h1>Configure sign in</h1>
        <form method="post" action="/setup">
            <label>Identity provider domain<input name="domain" value="{{.Config.Domain}}"></label>
            <label>App client ID<input name="client_id" value="{{.Config.ClientID}}"></label>
            <label>Region<input name="region" value="{{.Config.Region}}"></label>
            <label>API base URL<input name="api_base_url" value="{{.Config.APIBaseURL}}"></label>
            <label>Organization ID<input name="org_id" value="{{.Config.OrgID}}"></label>
            <button type="submit">Save settings</button>
        </form>
{{else if eq .Card.String "login"}}
        <h1>Sign in</h1>
        <a class="button" href="/login?provider=Google">Continue with Google</a>
        <a class="button" href="/login">Sign in with email</a>
        <p><a href="/setup">Reconfigure</a></p>
{{else if eq .Card.String "callback"}}
        <h1>Signing you in</h1>
{{else if eq .Card.String "logged-in"}}
        <h1>Signed in as {{.User}}</h1>
        <a class="button" href="/dashboard">Continue</a>
        <form method="post" action="/logout"><button type="submit">Sign out</button></form>
{{end}}
{{if .Status}}        <div class="status{{if .IsError}} error{{end}}">{{.Status}}</div>{{end}}
{{end}}

{{define "page"}}{{template "head" "Sign in"}}
    <div class="card" id="current">{{template "card" .View}}</div>
{{if .Deferred}}    <div class="card hidden" id="deferred">{{template "card" .Deferred}}</div>{{end}}
    <script>
    {{if .Replace}}window.history.replaceState({}, document.title, {{.Replace}});{{end}}
    {{if .Deferred}}setTimeout(function () {
        document.getElementById("current").classList.add("hidden");
        document.getElementById("deferred").classList.remove("hidden");
    }, {{.DelayMS}});{{end}}
    </script>
</body>
</html>{{end}}

{{define "dashboard"}}{{template "head" "Dashboard"}}
    <div class="card">
        <h1>Signed in as {{.User}}</h1>
        <p>API: {{.APIBaseURL}}</p>
        <p>Organization: {{.OrgID}}</p>
        <form method="post" action="/logout"><button type="submit">Sign out</button></form>
    </div>
</body>
</html>{{end}}
`
