package page

import "html/template"

var revalidationTemplate = template.Must(template.New("revalidation").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>On-Demand Revalidation</title>
</head>
<body>
<main>
<h1>Revalidation Basics</h1>
<p>This page performs a fetch on the server to get a random article from Wikipedia.
The fetched data is then cached with a tag named "{{.Tag}}" and a maximum age of {{.TTL}} seconds.</p>
<p>After the set time has passed, the first request for this page triggers a refresh in the background.
When the new data is ready, subsequent requests return it (stale-while-revalidate).</p>
<p>Alternatively, if the cache tag is explicitly invalidated, any page using that tag is refreshed
in the background when next requested. In real-life applications, tags are typically invalidated when data
has changed in an external system (e.g. the CMS notifies the site about content changes via a webhook),
or after a data mutation made through the site.</p>
<form method="post" action="{{.Action}}">
<button type="submit">Click to Revalidate</button>
</form>
<div class="card">
<div class="last-fetched">Last fetched: {{.LastFetched}}</div>
<div class="card-title">{{.Article.Title}}</div>
<div class="card-body">
<div class="description">{{.Article.Description}}</div>
<p class="extract">{{.Article.Extract}}</p>
<a target="_blank" rel="noopener noreferrer" href="{{.Article.PageURL}}">From Wikipedia</a>
</div>
</div>
</main>
</body>
</html>
`))
