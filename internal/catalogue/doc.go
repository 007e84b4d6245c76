// Package catalogue holds the registry catalogue that validation runs
// consult: which hosts cover which institutions, which APIs they implement
// at which URLs, and which server keys they sign with.
//
// A snapshot is a YAML document:
//
//	hosts:
//	  - name: University of Example
//	    heis: [uni.example.org]
//	    serverKeys:
//	      - |
//	        -----BEGIN PUBLIC KEY-----
//	        ...
//	    apis:
//	      - name: institutions
//	        version: 2.0.0
//	        url: https://ewp.uni.example.org/institutions
//	        params:
//	          max-hei-ids: "2"
//	        httpSecurity:
//	          client-auth-methods: [none, httpsig]
//	          server-auth-methods: [tlscert, httpsig]
//	      - name: iias
//	        version: 7.0.0
//	        endpoints:
//	          index: https://ewp.uni.example.org/iias/index
//	          get: https://ewp.uni.example.org/iias/get
//
// Snapshots come from a file (optionally watched with fsnotify) or from a
// URL fetched with retries. A Store publishes the current snapshot through
// an atomic pointer so that running validations never observe a partial
// reload.
package catalogue
