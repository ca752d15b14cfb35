package handler

const formPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Silo Device Setup</title>
    <style>
        body { font-family: -apple-system, sans-serif; max-width: 400px; margin: 50px auto; padding: 20px; background: #1a1a2e; color: #eee; }
        h1 { color: #00d4ff; text-align: center; }
        form { background: #16213e; padding: 20px; border-radius: 10px; }
        label { display: block; margin: 15px 0 5px; color: #00d4ff; }
        input { width: 100%; padding: 12px; border: 1px solid #0f3460; border-radius: 5px; background: #1a1a2e; color: #fff; box-sizing: border-box; }
        button { width: 100%; padding: 15px; margin-top: 20px; background: #00d4ff; color: #1a1a2e; border: none; border-radius: 5px; font-weight: bold; cursor: pointer; }
        .info { font-size: 12px; color: #888; margin-top: 5px; }
    </style>
</head>
<body>
    <h1>Silo Device</h1>
    <form method="POST" action="/provision">
        <label>WiFi Network (SSID)</label>
        <input type="text" name="ssid" required maxlength="32">

        <label>WiFi Password</label>
        <input type="password" name="password" required maxlength="64">

        <label>Device ID</label>
        <input type="text" name="device_id" required maxlength="32">
        <div class="info">Unique identifier for this device</div>

        <label>API Key</label>
        <input type="password" name="api_key" maxlength="128">
        <div class="info">Optional: for authenticated API calls</div>

        <button type="submit">Save &amp; Connect</button>
    </form>
</body>
</html>`

const successPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Setup Complete</title>
    <style>
        body { font-family: -apple-system, sans-serif; max-width: 400px; margin: 50px auto; padding: 20px; background: #1a1a2e; color: #eee; text-align: center; }
        h1 { color: #00ff88; }
        p { color: #888; }
    </style>
</head>
<body>
    <h1>Setup Complete!</h1>
    <p>The device will restart and connect to your WiFi network.</p>
    <p>This access point will disappear.</p>
</body>
</html>`
